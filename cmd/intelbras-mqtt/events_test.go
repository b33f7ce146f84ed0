package main

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	for line, want := range map[string]EventKind{
		"12:00 Ativacao remota app usuario 1":    EventArmed,
		"12:01 Desativacao remota app usuario 1": EventDisarmed,
		"Panico audivel usuario 3":               EventPanic,
		"Panico":                                 EventPanic,
		"12:02 Panico audivel":                   EventUnclassified,
		"panico audivel":                         EventUnclassified,
		"ativacao remota app":                    EventUnclassified,
		"Ativacao por senha":                     EventUnclassified,
		"Disparo de zona 3":                      EventUnclassified,
		"Ativacao remota app Panico":             EventArmed,
	} {
		evt := classify(line)
		require.Equal(t, want, evt.Kind, line)
		require.Equal(t, line, evt.Line)
	}
}

func TestEventReaderPublishesState(t *testing.T) {
	pub := &recordingPublisher{}
	topics := NewTopics("intelbras/alarm")
	reader := NewEventReader(pub, topics, time.Hour)

	reader.Run(testContext(t), strings.NewReader(strings.Join([]string{
		"Conectado a central",
		"",
		"  Ativacao remota app usuario 1  ",
		"Evento desconhecido",
		"Desativacao remota app usuario 1",
	}, "\n")))

	require.Equal(t, []message{
		{"intelbras/alarm/state", "Armada", true},
		{"intelbras/alarm/state", "Desarmada", true},
	}, pub.Messages())
}

func TestEventReaderPanicClears(t *testing.T) {
	pub := &recordingPublisher{}
	topics := NewTopics("alarm")
	reader := NewEventReader(pub, topics, 50*time.Millisecond)

	reader.Run(testContext(t), strings.NewReader("Panico audivel\n"))
	require.Equal(t, []message{{topics.Panic(), "on", false}}, pub.Messages())

	require.Eventually(t, func() bool {
		return len(pub.Messages()) == 2
	}, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, []message{
		{topics.Panic(), "on", false},
		{topics.Panic(), "off", false},
	}, pub.Messages())
}

func TestEventReaderPanicBurstClearsOnce(t *testing.T) {
	pub := &recordingPublisher{}
	topics := NewTopics("alarm")
	reader := NewEventReader(pub, topics, 300*time.Millisecond)

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		reader.Run(testContext(t), pr)
	}()

	_, err := io.WriteString(pw, "Panico 1\n")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = io.WriteString(pw, "Panico 2\n")
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	<-done

	require.Eventually(t, func() bool {
		return len(pub.On(topics.Panic())) == 3
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	require.Equal(t, []message{
		{topics.Panic(), "on", false},
		{topics.Panic(), "on", false},
		{topics.Panic(), "off", false},
	}, pub.Messages())
}

func TestEventReaderPanicCancelledOnShutdown(t *testing.T) {
	pub := &recordingPublisher{}
	topics := NewTopics("alarm")
	reader := NewEventReader(pub, topics, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(testContext(t))
	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		reader.Run(ctx, pr)
	}()

	_, err := io.WriteString(pw, "Panico\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(pub.Messages()) == 1
	}, time.Second, time.Millisecond)
	cancel()

	time.Sleep(150 * time.Millisecond)
	require.Equal(t, []message{{topics.Panic(), "on", false}}, pub.Messages())

	require.NoError(t, pw.Close())
	<-done
}

func TestEventReaderStopsOnReadError(t *testing.T) {
	pub := &recordingPublisher{}
	reader := NewEventReader(pub, NewTopics("alarm"), time.Hour)

	pr, pw := io.Pipe()
	require.NoError(t, pw.CloseWithError(io.ErrUnexpectedEOF))
	reader.Run(testContext(t), pr)
	require.Empty(t, pub.Messages())
}

func TestEventReaderLongLine(t *testing.T) {
	pub := &recordingPublisher{}
	reader := NewEventReader(pub, NewTopics("alarm"), time.Hour)

	reader.Run(testContext(t), strings.NewReader(
		strings.Repeat("x", 70*1024)+"\nAtivacao remota app usuario 1\n",
	))
	require.Equal(t, []message{{"alarm/state", "Armada", true}}, pub.Messages())
}

func TestReadLineTruncates(t *testing.T) {
	br := bufio.NewReader(strings.NewReader(strings.Repeat("a", maxEventLine+10) + "\r\nnext"))

	line, err := readLine(br)
	require.NoError(t, err)
	require.Len(t, line, maxEventLine)

	line, err = readLine(br)
	require.Equal(t, "next", line)
	require.NoError(t, err)

	_, err = readLine(br)
	require.ErrorIs(t, err, io.EOF)
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestEventReaderClosesSource(t *testing.T) {
	pr, pw := io.Pipe()
	require.NoError(t, pw.CloseWithError(io.ErrUnexpectedEOF))
	source := &closeRecorder{Reader: pr}

	NewEventReader(&recordingPublisher{}, NewTopics("alarm"), time.Hour).Run(testContext(t), source)
	require.True(t, source.closed)
}
