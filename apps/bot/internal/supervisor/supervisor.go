// Package supervisor runs the bot as a background process tracked by a PID
// file, with start, stop and restart controls.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sevlyar/go-daemon"
	"github.com/sirupsen/logrus"

	"spadesbot/apps/bot/internal/logging"
)

var ErrAlreadyRunning = errors.New("daemon already running")

const stopTimeout = 10 * time.Second

// RunFunc is the daemon body. It returns when ctx is cancelled by SIGTERM
// or SIGINT.
type RunFunc func(ctx context.Context) error

type Supervisor struct {
	dctx *daemon.Context
	log  *logrus.Entry
}

func New(pidFile, logFile string) *Supervisor {
	return &Supervisor{
		dctx: &daemon.Context{
			PidFileName: pidFile,
			PidFilePerm: 0o644,
			LogFileName: logFile,
			LogFilePerm: 0o640,
			Umask:       0o027,
		},
		log: logging.For("Supervisor"),
	}
}

// Running returns the live daemon process, or nil.
func (s *Supervisor) Running() *os.Process {
	p, err := s.dctx.Search()
	if err != nil || p == nil {
		return nil
	}
	if p.Signal(syscall.Signal(0)) != nil {
		return nil
	}
	return p
}

// Start forks the daemon and returns in the parent. In the forked child it
// runs run until a stop signal arrives.
func (s *Supervisor) Start(run RunFunc) error {
	if !daemon.WasReborn() {
		if p := s.Running(); p != nil {
			return fmt.Errorf("pid %d from %s: %w", p.Pid, s.dctx.PidFileName, ErrAlreadyRunning)
		}
	}

	child, err := s.dctx.Reborn()
	if err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if child != nil {
		s.log.Infof("daemon started with pid %d", child.Pid)
		return nil
	}
	defer s.dctx.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	s.log.Infof("daemon running with pid %d", os.Getpid())
	return run(ctx)
}

// Stop signals the daemon and waits for it to exit. Stopping a daemon that
// is not running only logs.
func (s *Supervisor) Stop() error {
	p := s.Running()
	if p == nil {
		s.log.Infof("pid file %s has no live daemon, nothing to stop", s.dctx.PidFileName)
		return nil
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %w", p.Pid, err)
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if p.Signal(syscall.Signal(0)) != nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if p.Signal(syscall.Signal(0)) == nil {
		return fmt.Errorf("pid %d still running after %s", p.Pid, stopTimeout)
	}
	if err := os.Remove(s.dctx.PidFileName); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	s.log.Infof("daemon pid %d stopped", p.Pid)
	return nil
}

// Restart stops any running daemon and starts a new one. The forked child
// only starts.
func (s *Supervisor) Restart(run RunFunc) error {
	if !daemon.WasReborn() {
		if err := s.Stop(); err != nil {
			return err
		}
	}
	return s.Start(run)
}
