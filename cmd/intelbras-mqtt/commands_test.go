package main

import (
	"testing"

	client "github.com/matbott/addons-alarma-intelbras"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	for payload, want := range map[string]Command{
		"ARM_AWAY":  CommandArmAway,
		"DISARM":    CommandDisarm,
		"arm_away":  CommandUnknown,
		"ARM_AWAY ": CommandUnknown,
		"ARM_HOME":  CommandUnknown,
		"":          CommandUnknown,
	} {
		require.Equal(t, want, parseCommand(payload), payload)
	}
}

func TestDispatcherIgnoresUnknownCommands(t *testing.T) {
	session := &fakeSession{}
	dispatcher := NewDispatcher(NewSessionGuard(session, "1234"))

	for _, payload := range []string{"", "disarm", "PANIC", "ARM_STAY", " DISARM"} {
		dispatcher.Handle(payload)
	}
	require.Empty(t, session.Calls())
}

func TestDispatcherArmAway(t *testing.T) {
	session := &fakeSession{}
	dispatcher := NewDispatcher(NewSessionGuard(session, "1234"))

	dispatcher.Handle("ARM_AWAY")
	require.Equal(t, []string{"connect", "auth:1234", "arm:255", "close"}, session.Calls())
}

func TestDispatcherRepeatedDisarm(t *testing.T) {
	session := &fakeSession{}
	dispatcher := NewDispatcher(NewSessionGuard(session, "1234"))

	dispatcher.Handle("DISARM")
	dispatcher.Handle("DISARM")
	require.Equal(t, []string{
		"connect", "auth:1234", "disarm:255", "close",
		"connect", "auth:1234", "disarm:255", "close",
	}, session.Calls())
}

func TestDispatcherDoesNotRetry(t *testing.T) {
	t.Run("auth", func(t *testing.T) {
		session := &fakeSession{authErr: client.ErrInvalidPassword}
		dispatcher := NewDispatcher(NewSessionGuard(session, "1234"))
		dispatcher.Handle("ARM_AWAY")
		require.Equal(t, []string{"connect", "auth:1234", "close"}, session.Calls())
	})

	t.Run("open zones", func(t *testing.T) {
		session := &fakeSession{actionErr: client.ErrOpenZones}
		dispatcher := NewDispatcher(NewSessionGuard(session, "1234"))
		dispatcher.Handle("ARM_AWAY")
		require.Equal(t, []string{"connect", "auth:1234", "arm:255", "close"}, session.Calls())
	})
}

func TestToPartition(t *testing.T) {
	require.Equal(t, byte(client.AllPartitions), toPartition(0))
	require.Equal(t, byte(2), toPartition(2))
}
