package main

import (
	"fmt"
	"strings"
)

// Topics builds the topic names, all under a common prefix.
type Topics struct {
	prefix string
}

func NewTopics(prefix string) Topics {
	return Topics{prefix: strings.TrimSuffix(prefix, "/")}
}

func (t Topics) topic(suffix string) string {
	return t.prefix + "/" + suffix
}

func (t Topics) Availability() string      { return t.topic("availability") }
func (t Topics) Command() string           { return t.topic("command") }
func (t Topics) State() string             { return t.topic("state") }
func (t Topics) Model() string             { return t.topic("model") }
func (t Topics) Version() string           { return t.topic("version") }
func (t Topics) BatteryPercentage() string { return t.topic("battery_percentage") }
func (t Topics) Tamper() string            { return t.topic("tamper") }
func (t Topics) Siren() string             { return t.topic("siren") }
func (t Topics) ZonesFiring() string       { return t.topic("zones_firing") }
func (t Topics) Panic() string             { return t.topic("panic") }

func (t Topics) Zone(n int) string {
	return t.topic(fmt.Sprintf("zone_%d", n))
}

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
	payloadOn      = "on"
	payloadOff     = "off"
	payloadArmed   = "Armada"
	payloadDisarm  = "Desarmada"
	payloadFiring  = "Disparada"
	payloadNormal  = "Normal"
)

func onOff(b bool) string {
	if b {
		return payloadOn
	}
	return payloadOff
}
