package amt8000

import (
	"encoding/hex"
	"fmt"
)

const (
	statusSize     = 143
	zoneCount      = 64
	partitionCount = 16
)

// Status is a snapshot of the panel, as returned by a single status query.
type Status struct {
	Model       string
	Version     string
	State       State
	ZonesFiring bool
	ZonesClosed bool
	Siren       bool
	Tamper      bool
	Battery     BatteryStatus
	Partitions  []Partition
	Zones       []Zone
}

type Zone struct {
	Number     int
	Enabled    bool
	Open       bool
	Violated   bool
	Anulated   bool
	Tamper     bool
	LowBattery bool
}

// Shows the sensor as open if it either is open or if it is violated.
func (z Zone) IsOpen() bool {
	return z.Open || z.Violated
}

// Zone returns the zone by its 1-based number.
func (s Status) Zone(n int) (Zone, bool) {
	if n < 1 || n > len(s.Zones) {
		return Zone{}, false
	}
	return s.Zones[n-1], true
}

type Partition struct {
	Number  int
	Enabled bool
	Armed   bool
	Fired   bool
	Firing  bool
	Stay    bool
}

func statusFromBytes(resp []byte) (Status, error) {
	if len(resp) != statusSize {
		return Status{}, fmt.Errorf("%w: invalid status:\n%s", ErrCommunication, hex.Dump(resp))
	}
	status := Status{
		Model:       modelName(resp[0]),
		Version:     version(resp[1:4]),
		State:       State(resp[20] >> 5 & 0x03),
		ZonesFiring: resp[20]&0x8 > 0,
		ZonesClosed: resp[20]&0x4 > 0,
		Siren:       resp[20]&0x2 > 0,
		Zones:       make([]Zone, zoneCount),
		Partitions:  make([]Partition, partitionCount),
	}

	for i := range status.Partitions {
		octet := resp[21+i]
		status.Partitions[i] = Partition{
			Number:  i,
			Enabled: octet&0x80 > 0,
			Armed:   octet&0x01 > 0,
			Firing:  octet&0x04 > 0,
			Fired:   octet&0x08 > 0,
			Stay:    octet&0x40 > 0,
		}
	}

	zones := status.Zones
	for i := range zones {
		zones[i].Number = i + 1
	}
	eachBit(resp[12:19], func(i int, on bool) { zones[i].Enabled = on })
	eachBit(resp[38:45], func(i int, on bool) { zones[i].Open = on })
	eachBit(resp[46:53], func(i int, on bool) { zones[i].Violated = on })
	eachBit(resp[54:62], func(i int, on bool) { zones[i].Anulated = on })
	eachBit(resp[89:96], func(i int, on bool) { zones[i].Tamper = on })
	eachBit(resp[105:112], func(i int, on bool) { zones[i].LowBattery = on })

	status.Battery = batteryStatusFor(resp)
	status.Tamper = resp[71]&(1<<0x01) > 0
	return status, nil
}

func eachBit(octets []byte, fn func(i int, on bool)) {
	for i, octet := range octets {
		for j := 0; j < 8; j++ {
			fn(j+i*8, octet&(1<<j) > 0)
		}
	}
}

func version(b []byte) string {
	return fmt.Sprintf("%d.%d.%d", int(b[0]), int(b[1]), int(b[2]))
}

func modelName(b byte) string {
	switch b {
	case 0x01:
		return "AMT-8000"
	default:
		return "Unknown"
	}
}
