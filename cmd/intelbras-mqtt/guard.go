package main

import (
	"fmt"
	"sync"
	"time"

	client "github.com/matbott/addons-alarma-intelbras"
)

// Session is what the guard needs from the panel client.
type Session interface {
	Connect() error
	Auth(password string) error
	Arm(partition byte) error
	Disarm(partition byte) error
	Status() (client.Status, error)
	Close() error
}

// SessionError is returned when the guard could not get an authenticated
// session, in which case the action was not run.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("could not open panel session for %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// SessionGuard owns the panel session. Every panel operation runs under its
// lock, on a freshly connected and authenticated session that is closed
// again once the operation is done.
type SessionGuard struct {
	mu       sync.Mutex
	session  Session
	password string
}

func NewSessionGuard(session Session, password string) *SessionGuard {
	return &SessionGuard{
		session:  session,
		password: password,
	}
}

// WithSession connects, authenticates and runs action while holding the lock.
func (g *SessionGuard) WithSession(op string, action func(Session) error) error {
	t := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	log.Debugf("got panel lock for %s after %s", op, time.Since(t))

	requestCounter.Inc()
	if err := g.session.Connect(); err != nil {
		requestErrorCounter.Inc()
		return &SessionError{Op: op, Err: err}
	}
	defer g.release(op)
	if err := g.session.Auth(g.password); err != nil {
		requestErrorCounter.Inc()
		return &SessionError{Op: op, Err: err}
	}
	if err := action(g.session); err != nil {
		requestErrorCounter.Inc()
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return nil
}

// release logs out of the panel so the remote session slot is freed until
// the next call.
func (g *SessionGuard) release(op string) {
	if err := g.session.Close(); err != nil {
		log.Debug("could not close panel session", "op", op, "err", err)
	}
}

// Close waits for the in-flight operation, if any, and closes the session.
func (g *SessionGuard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.Close()
}
