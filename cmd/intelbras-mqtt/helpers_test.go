package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	client "github.com/matbott/addons-alarma-intelbras"
)

type fakeSession struct {
	mu    sync.Mutex
	calls []string

	connectErr error
	authErr    error
	actionErr  error
	status     client.Status
	delay      time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (s *fakeSession) enter(call string) func() {
	n := s.inFlight.Add(1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return func() { s.inFlight.Add(-1) }
}

func (s *fakeSession) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeSession) Connect() error {
	defer s.enter("connect")()
	return s.connectErr
}

func (s *fakeSession) Auth(password string) error {
	defer s.enter("auth:" + password)()
	return s.authErr
}

func (s *fakeSession) Arm(partition byte) error {
	defer s.enter(fmt.Sprintf("arm:%d", partition))()
	return s.actionErr
}

func (s *fakeSession) Disarm(partition byte) error {
	defer s.enter(fmt.Sprintf("disarm:%d", partition))()
	return s.actionErr
}

func (s *fakeSession) Status() (client.Status, error) {
	defer s.enter("status")()
	return s.status, s.actionErr
}

func (s *fakeSession) Close() error {
	defer s.enter("close")()
	return nil
}

type message struct {
	Topic    string
	Payload  string
	Retained bool
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []message
}

func (p *recordingPublisher) Publish(topic, payload string, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message{topic, payload, retained})
	return nil
}

func (p *recordingPublisher) Messages() []message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]message(nil), p.messages...)
}

func (p *recordingPublisher) On(topic string) []message {
	var result []message
	for _, m := range p.Messages() {
		if m.Topic == topic {
			result = append(result, m)
		}
	}
	return result
}

type fakeBus struct {
	recordingPublisher

	subMu        sync.Mutex
	handlers     map[string]func(string)
	subscribedAt int // number of messages published before subscribing
	disconnected atomic.Bool
}

func (b *fakeBus) Subscribe(topic string, handler func(payload string)) error {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if b.handlers == nil {
		b.handlers = map[string]func(string){}
	}
	b.handlers[topic] = handler
	b.subscribedAt = len(b.Messages())
	return nil
}

func (b *fakeBus) Handler(topic string) func(string) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	return b.handlers[topic]
}

func (b *fakeBus) Disconnect(time.Duration) {
	b.disconnected.Store(true)
}

// testContext stands in for testing.T.Context (Go 1.24+): it returns a
// context that is canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
