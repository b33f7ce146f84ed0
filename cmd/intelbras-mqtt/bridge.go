package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type LifecycleState int32

const (
	StateStarting LifecycleState = iota
	StateRunning
	StateShuttingDown
	StateTerminated
)

func (s LifecycleState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting down"
	default:
		return "terminated"
	}
}

const disconnectQuiesce = 250 * time.Millisecond

// Bus is the message broker as seen by the bridge.
type Bus interface {
	Publisher
	Subscribe(topic string, handler func(payload string)) error
	Disconnect(quiesce time.Duration)
}

// Bridge wires the panel, the broker and receptorip together, and owns the
// startup and shutdown sequences.
type Bridge struct {
	cfg    Config
	topics Topics
	guard  *SessionGuard

	dial        func() (Bus, error)
	startSource func(ctx context.Context) (io.Reader, error)
	newBackOff  func() backoff.BackOff

	state atomic.Int32
	wg    sync.WaitGroup
}

func NewBridge(cfg Config, session Session) *Bridge {
	topics := NewTopics(cfg.TopicPrefix)
	return &Bridge{
		cfg:    cfg,
		topics: topics,
		guard:  NewSessionGuard(session, cfg.Password),
		dial: func() (Bus, error) {
			return dialMQTT(cfg, topics)
		},
		startSource: func(ctx context.Context) (io.Reader, error) {
			return startReceptor(ctx, cfg.Receptor, cfg.ReceptorConfig)
		},
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxInterval = time.Second * 5
			bo.MaxElapsedTime = cfg.ConnectTimeout
			return bo
		},
	}
}

func (b *Bridge) State() LifecycleState {
	return LifecycleState(b.state.Load())
}

func (b *Bridge) setState(s LifecycleState) {
	log.Debug("lifecycle", "state", s)
	b.state.Store(int32(s))
}

// Run starts the bridge and blocks until ctx is cancelled, then shuts it
// down. Errors are only returned for startup failures, in which case no
// worker was started.
func (b *Bridge) Run(ctx context.Context) error {
	b.setState(StateStarting)

	bus, err := b.connect(ctx)
	if err != nil {
		b.setState(StateTerminated)
		return err
	}
	b.publishAvailability(bus, payloadOnline)

	dispatcher := NewDispatcher(b.guard)
	if err := bus.Subscribe(b.topics.Command(), dispatcher.Handle); err != nil {
		b.abort(bus)
		return fmt.Errorf("could not subscribe to commands: %w", err)
	}

	events, err := b.startSource(ctx)
	if err != nil {
		b.abort(bus)
		return err
	}

	poller := NewPoller(b.guard, bus, b.topics, b.cfg.pollInterval(), b.cfg.Zones)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		poller.Run(ctx)
	}()

	reader := NewEventReader(bus, b.topics, b.cfg.PanicClearAfter)
	go reader.Run(ctx, events)

	b.setState(StateRunning)
	log.Info("bridge is running, listening for events and commands")

	<-ctx.Done()
	b.shutdown(bus)
	return nil
}

func (b *Bridge) connect(ctx context.Context) (Bus, error) {
	var bus Bus
	if err := backoff.RetryNotify(func() error {
		var err error
		bus, err = b.dial()
		return err
	}, backoff.WithContext(b.newBackOff(), ctx), func(err error, d time.Duration) {
		log.Warn("could not connect to mqtt broker, retrying", "err", err, "in", d)
	}); err != nil {
		return nil, fmt.Errorf("could not connect to mqtt broker: %w", err)
	}
	return bus, nil
}

func (b *Bridge) shutdown(bus Bus) {
	b.setState(StateShuttingDown)
	log.Info("shutting down")

	// the poller finishes its in-flight cycle, so offline is the last message.
	b.wg.Wait()
	b.publishAvailability(bus, payloadOffline)
	time.Sleep(b.cfg.ShutdownGrace)
	bus.Disconnect(disconnectQuiesce)

	if err := b.guard.Close(); err != nil {
		log.Error("could not close panel session", "err", err)
	}
	b.setState(StateTerminated)
}

// abort undoes a partial startup.
func (b *Bridge) abort(bus Bus) {
	b.publishAvailability(bus, payloadOffline)
	bus.Disconnect(disconnectQuiesce)
	b.setState(StateTerminated)
}

func (b *Bridge) publishAvailability(bus Bus, payload string) {
	if err := bus.Publish(b.topics.Availability(), payload, true); err != nil {
		publishErrorCounter.Inc()
		log.Error("could not publish availability", "availability", payload, "err", err)
	}
}
