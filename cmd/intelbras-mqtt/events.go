package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

type EventKind int

const (
	EventUnclassified EventKind = iota
	EventArmed
	EventDisarmed
	EventPanic
)

func (k EventKind) String() string {
	switch k {
	case EventArmed:
		return "armed"
	case EventDisarmed:
		return "disarmed"
	case EventPanic:
		return "panic"
	default:
		return "unclassified"
	}
}

// Event is one line of the receptorip output.
type Event struct {
	Kind EventKind
	Line string
}

// classify maps a line to its event kind. The first matching rule wins.
func classify(line string) Event {
	evt := Event{Line: line}
	switch {
	case strings.Contains(line, "Ativacao remota app"):
		evt.Kind = EventArmed
	case strings.Contains(line, "Desativacao remota app"):
		evt.Kind = EventDisarmed
	case strings.HasPrefix(line, "Panico"):
		evt.Kind = EventPanic
	}
	return evt
}

// EventReader publishes the events emitted by receptorip.
// It never talks to the panel, so it does not need the session guard.
type EventReader struct {
	pub        Publisher
	topics     Topics
	clearAfter time.Duration

	mu         sync.Mutex
	panicTimer *time.Timer
	panicGen   uint64
}

func NewEventReader(pub Publisher, topics Topics, clearAfter time.Duration) *EventReader {
	return &EventReader{
		pub:        pub,
		topics:     topics,
		clearAfter: clearAfter,
	}
}

// maxEventLine caps the length of a single receptorip line. The remainder of
// a longer line is discarded.
const maxEventLine = 64 * 1024

// Run reads rd line by line until it ends. When ctx is done, a pending panic
// clear is cancelled. If rd is an io.Closer it is closed on return, so
// receptorip is never left blocked on a full pipe.
func (r *EventReader) Run(ctx context.Context, rd io.Reader) {
	stop := context.AfterFunc(ctx, r.cancelPanic)
	defer stop()
	if c, ok := rd.(io.Closer); ok {
		defer c.Close()
	}

	br := bufio.NewReader(rd)
	for {
		raw, err := readLine(br)
		if line := strings.TrimSpace(raw); line != "" {
			log.Info("panel event", "line", line)
			r.dispatch(ctx, classify(line))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn("could not read receptorip output", "err", err)
			}
			break
		}
	}
	log.Warn("receptorip output ended, no more panel events")
}

// readLine returns the next line without its line ending, truncated to
// maxEventLine bytes.
func readLine(br *bufio.Reader) (string, error) {
	var line []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if room := maxEventLine - len(line); room > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}
		if err != nil || !isPrefix {
			return string(line), err
		}
	}
}

func (r *EventReader) dispatch(ctx context.Context, evt Event) {
	eventCounter.WithLabelValues(evt.Kind.String()).Inc()
	switch evt.Kind {
	case EventArmed:
		armStateGauge.Set(1)
		r.send(r.topics.State(), payloadArmed, true)
	case EventDisarmed:
		armStateGauge.Set(0)
		r.send(r.topics.State(), payloadDisarm, true)
	case EventPanic:
		log.Warn("panic reported by the panel", "clear_after", r.clearAfter)
		r.send(r.topics.Panic(), payloadOn, false)
		r.armPanicClear(ctx)
	}
}

// armPanicClear schedules panic=off. A newer panic replaces the pending
// clear, so a burst of panics ends with a single off.
func (r *EventReader) armPanicClear(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicTimer != nil {
		r.panicTimer.Stop()
	}
	r.panicGen++
	gen := r.panicGen
	r.panicTimer = time.AfterFunc(r.clearAfter, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if gen != r.panicGen || ctx.Err() != nil {
			return
		}
		r.panicTimer = nil
		r.send(r.topics.Panic(), payloadOff, false)
	})
}

func (r *EventReader) cancelPanic() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicTimer != nil {
		r.panicTimer.Stop()
		r.panicTimer = nil
	}
	r.panicGen++
}

func (r *EventReader) send(topic, payload string, retained bool) {
	if err := r.pub.Publish(topic, payload, retained); err != nil {
		publishErrorCounter.Inc()
		log.Error("could not publish", "topic", topic, "err", err)
	}
}
