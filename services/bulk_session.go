package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// BulkStatus describes an active session.
type BulkStatus struct {
	StartedAt time.Time
	ExpiresAt time.Time
	Pending   int
}

type bulkSession struct {
	startedAt time.Time
	uploads   []PendingUpload
	stop      func()
}

// SessionRegistry owns the per-admin bulk upload sessions and their timeouts.
// Starting a session while one is active replaces it; the replaced uploads
// are discarded unprocessed.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[int64]*bulkSession

	pipeline *IngestionPipeline
	deferrer Deferrer
	timeout  time.Duration
	now      func() time.Time

	// OnExpire receives the result of a session finished by its timer.
	OnExpire func(adminID int64, report *IngestReport, err error)
}

func NewSessionRegistry(pipeline *IngestionPipeline, deferrer Deferrer, timeout time.Duration) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[int64]*bulkSession),
		pipeline: pipeline,
		deferrer: deferrer,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Start opens a session for adminID. It reports whether an active session
// was replaced.
func (r *SessionRegistry) Start(adminID int64) (replaced bool) {
	s := &bulkSession{startedAt: r.now()}
	s.stop = r.deferrer.AfterFunc(r.timeout, func() { r.expire(adminID, s) })

	r.mu.Lock()
	prev, replaced := r.sessions[adminID]
	r.sessions[adminID] = s
	discarded := 0
	if replaced {
		discarded = len(prev.uploads)
	}
	r.mu.Unlock()

	if replaced {
		if prev.stop != nil {
			prev.stop()
		}
		log.Printf("[Bulk] session of %d replaced, %d pending uploads discarded", adminID, discarded)
	}
	return replaced
}

// Append queues an upload. No validation happens until the session finishes.
func (r *SessionRegistry) Append(adminID int64, upload PendingUpload) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[adminID]
	if !ok {
		return 0, ErrNoSession
	}
	s.uploads = append(s.uploads, upload)
	return len(s.uploads), nil
}

func (r *SessionRegistry) Status(adminID int64) (BulkStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[adminID]
	if !ok {
		return BulkStatus{}, false
	}
	return BulkStatus{
		StartedAt: s.startedAt,
		ExpiresAt: s.startedAt.Add(r.timeout),
		Pending:   len(s.uploads),
	}, true
}

// Finish ingests the session's uploads. With no active session it does
// nothing and returns a nil report.
func (r *SessionRegistry) Finish(ctx context.Context, adminID int64) (*IngestReport, error) {
	s := r.take(adminID, nil)
	if s == nil {
		return nil, nil
	}
	return r.pipeline.Ingest(ctx, s.uploads)
}

// Cancel drops the session without ingesting it.
func (r *SessionRegistry) Cancel(adminID int64) (discarded int, ok bool) {
	s := r.take(adminID, nil)
	if s == nil {
		return 0, false
	}
	return len(s.uploads), true
}

// take removes the admin's session. When want is set, only that exact
// session is removed, so a stale timer cannot end a newer session.
func (r *SessionRegistry) take(adminID int64, want *bulkSession) *bulkSession {
	r.mu.Lock()
	s, ok := r.sessions[adminID]
	if !ok || (want != nil && s != want) {
		r.mu.Unlock()
		return nil
	}
	delete(r.sessions, adminID)
	stop := s.stop
	r.mu.Unlock()

	if want == nil && stop != nil {
		stop()
	}
	return s
}

func (r *SessionRegistry) expire(adminID int64, s *bulkSession) {
	if r.take(adminID, s) == nil {
		return
	}
	log.Printf("[Bulk] ⏰ session of %d expired with %d uploads", adminID, len(s.uploads))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	report, err := r.pipeline.Ingest(ctx, s.uploads)
	if r.OnExpire != nil {
		r.OnExpire(adminID, report, err)
	}
}
