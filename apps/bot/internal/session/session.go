package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"spadesbot/apps/bot/internal/logging"
)

var ErrClosed = errors.New("session closed")

// Job runs against the session state. Jobs of one session never overlap.
type Job func(ctx context.Context, st *State) error

type request struct {
	ctx      context.Context
	job      Job
	response chan error
}

// Session owns one State and serializes every job on a single actor
// goroutine, so a command runs to completion before the next one starts.
type Session struct {
	ID    string
	Scope string

	state *State
	log   *logrus.Entry

	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
	requests chan request
	done     chan struct{}
}

// New creates a session for scope and starts its actor.
func New(scope string) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		Scope:    scope,
		state:    NewState(),
		requests: make(chan request, 64),
		done:     make(chan struct{}),
	}
	s.log = logging.For("Session").WithFields(logrus.Fields{"scope": scope, "session": s.ID})
	go s.run()
	s.log.Debug("created")
	return s
}

func (s *Session) run() {
	for {
		select {
		case req := <-s.requests:
			req.response <- s.handle(req)
		case <-s.done:
			s.log.Debug("actor stopped")
			return
		}
	}
}

func (s *Session) handle(req request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("job panicked: %v", r)
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	if err := req.ctx.Err(); err != nil {
		return err
	}
	return req.job(req.ctx, s.state)
}

// Submit queues a job and waits for it to finish.
func (s *Session) Submit(ctx context.Context, job Job) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	req := request{ctx: ctx, job: job, response: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.response:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// Close stops the actor. Jobs already running finish; queued ones are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *Session) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
