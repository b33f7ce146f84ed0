package main

import (
	"context"
	"strconv"
	"time"

	client "github.com/matbott/addons-alarma-intelbras"
)

// Publisher publishes a text payload on a topic.
type Publisher interface {
	Publish(topic, payload string, retained bool) error
}

// Poller periodically reads the panel status and publishes it, retained.
type Poller struct {
	guard    *SessionGuard
	pub      Publisher
	topics   Topics
	interval time.Duration
	zones    []int
}

func NewPoller(guard *SessionGuard, pub Publisher, topics Topics, interval time.Duration, zones []int) *Poller {
	return &Poller{
		guard:    guard,
		pub:      pub,
		topics:   topics,
		interval: interval,
		zones:    zones,
	}
}

// Run polls until ctx is done. A cancelled ctx interrupts the wait between
// cycles right away.
func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	for {
		p.poll(ctx)

		timer.Reset(p.interval)
		select {
		case <-ctx.Done():
			log.Info("stopping status poller")
			return
		case <-timer.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	var status client.Status
	if err := p.guard.WithSession("status", func(s Session) (err error) {
		status, err = s.Status()
		return
	}); err != nil {
		log.Error("could not get status", "err", err)
		pollCounter.WithLabelValues("error").Inc()
		return
	}
	if ctx.Err() != nil {
		log.Debug("shutting down, discarding status")
		return
	}
	pollCounter.WithLabelValues("ok").Inc()
	p.publish(status)
}

func (p *Poller) publish(status client.Status) {
	log.Debug(
		"alarm status",
		"model", status.Model,
		"version", status.Version,
		"state", status.State,
		"battery", status.Battery,
		"tamper", status.Tamper,
		"siren", status.Siren,
		"firing", status.ZonesFiring,
	)

	p.send(p.topics.Model(), status.Model)
	p.send(p.topics.Version(), status.Version)

	if pct, ok := status.Battery.Percentage(); ok {
		batteryGauge.Set(float64(pct))
		p.send(p.topics.BatteryPercentage(), strconv.Itoa(pct))
	} else {
		log.Warn("unknown battery level, not publishing", "battery", status.Battery)
	}

	tamperGauge.Set(boolAs[float64](status.Tamper))
	p.send(p.topics.Tamper(), onOff(status.Tamper))

	sirenGauge.Set(boolAs[float64](status.Siren))
	p.send(p.topics.Siren(), onOff(status.Siren))

	firing := payloadNormal
	if status.ZonesFiring {
		firing = payloadFiring
	}
	p.send(p.topics.ZonesFiring(), firing)

	for _, n := range p.zones {
		zone, ok := status.Zone(n)
		if !ok {
			continue
		}
		openGauge.WithLabelValues(strconv.Itoa(n)).Set(boolAs[float64](zone.IsOpen()))
		p.send(p.topics.Zone(n), onOff(zone.IsOpen()))
	}
}

func (p *Poller) send(topic, payload string) {
	if err := p.pub.Publish(topic, payload, true); err != nil {
		publishErrorCounter.Inc()
		log.Error("could not publish", "topic", topic, "err", err)
	}
}

func boolAs[T int | float64](b bool) T {
	if b {
		return 1
	}
	return 0
}
