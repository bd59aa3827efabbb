// workers/broadcast_worker.go
package workers

import (
	"context"
	"log"

	"channel-unlock-bot/services"
)

// BroadcastJob is one queued broadcast. Done, when set, receives the outcome.
type BroadcastJob struct {
	Text        string
	RequestedBy int64
	Done        func(report services.BroadcastReport, err error)
}

// Broadcaster is what the worker drains jobs into.
type Broadcaster interface {
	Send(ctx context.Context, text string) (services.BroadcastReport, error)
}

// BroadcastWorker runs broadcasts one at a time off the update loop, so a
// long fan-out never blocks command handling.
type BroadcastWorker struct {
	broadcaster Broadcaster
	jobs        chan BroadcastJob
}

func NewBroadcastWorker(b Broadcaster, queueSize int) *BroadcastWorker {
	return &BroadcastWorker{broadcaster: b, jobs: make(chan BroadcastJob, queueSize)}
}

// Enqueue adds a job; it reports false when the queue is full.
func (w *BroadcastWorker) Enqueue(job BroadcastJob) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		return false
	}
}

func (w *BroadcastWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Broadcast Worker…")
	go w.run(ctx)
}

func (w *BroadcastWorker) run(ctx context.Context) {
	for {
		select {
		case job := <-w.jobs:
			log.Printf("[Broadcast] job from %d started", job.RequestedBy)
			report, err := w.broadcaster.Send(ctx, job.Text)
			if job.Done != nil {
				job.Done(report, err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Broadcast Worker stopped")
			return
		}
	}
}
