package main

import (
	client "github.com/matbott/addons-alarma-intelbras"
)

type Command int

const (
	CommandUnknown Command = iota
	CommandArmAway
	CommandDisarm
)

func (c Command) String() string {
	switch c {
	case CommandArmAway:
		return "ARM_AWAY"
	case CommandDisarm:
		return "DISARM"
	default:
		return "UNKNOWN"
	}
}

func parseCommand(payload string) Command {
	switch payload {
	case "ARM_AWAY":
		return CommandArmAway
	case "DISARM":
		return CommandDisarm
	default:
		return CommandUnknown
	}
}

// allPartitions is the partition every command targets.
const allPartitions = 0

// Dispatcher runs the commands received on the command topic.
// It may be called concurrently with itself and with the poller.
type Dispatcher struct {
	guard *SessionGuard
}

func NewDispatcher(guard *SessionGuard) *Dispatcher {
	return &Dispatcher{guard: guard}
}

// Handle executes one command payload. Failures are logged and never retried:
// the next command or poll will authenticate again.
func (d *Dispatcher) Handle(payload string) {
	cmd := parseCommand(payload)
	log.Info("command received", "command", payload)

	var action func(Session) error
	switch cmd {
	case CommandArmAway:
		action = func(s Session) error {
			return s.Arm(toPartition(allPartitions))
		}
	case CommandDisarm:
		action = func(s Session) error {
			return s.Disarm(toPartition(allPartitions))
		}
	default:
		log.Warn("unknown command, ignoring", "command", payload)
		commandCounter.WithLabelValues(cmd.String(), "ignored").Inc()
		return
	}

	if err := d.guard.WithSession(cmd.String(), action); err != nil {
		log.Error("could not execute command", "command", cmd, "err", err)
		commandCounter.WithLabelValues(cmd.String(), "error").Inc()
		return
	}
	commandCounter.WithLabelValues(cmd.String(), "ok").Inc()
}

func toPartition(i int) byte {
	if i == 0 {
		return client.AllPartitions
	}
	return byte(i)
}
