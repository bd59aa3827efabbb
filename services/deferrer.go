package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Deferrer runs fn once after d. The returned stop func disarms it; calling
// stop after fn already ran is a no-op.
type Deferrer interface {
	AfterFunc(d time.Duration, fn func()) (stop func())
}

// SchedulerDeferrer arms one-time gocron jobs.
type SchedulerDeferrer struct {
	Scheduler gocron.Scheduler
}

func (s SchedulerDeferrer) AfterFunc(d time.Duration, fn func()) func() {
	job, err := s.Scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(d))),
		gocron.NewTask(fn),
	)
	if err != nil {
		log.Printf("[Scheduler] ⚠️ one-time job rejected, using a plain timer: %v", err)
		t := time.AfterFunc(d, fn)
		return func() { t.Stop() }
	}
	return func() { _ = s.Scheduler.RemoveJob(job.ID()) }
}
