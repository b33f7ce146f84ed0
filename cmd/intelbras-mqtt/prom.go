package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "intelbras_mqtt"

var armStateGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "alarm",
	Name:      "armed",
	Help:      "Last arm state reported by receptorip",
})

var batteryGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "alarm",
	Name:      "battery_percentage",
	Help:      "Panel battery level",
})

var tamperGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "alarm",
	Name:      "tamper",
	Help:      "",
})

var sirenGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "alarm",
	Name:      "siren",
	Help:      "",
})

var openGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "alarm",
	Name:      "zone_open",
	Help:      "",
}, []string{"zone"})

var requestCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "client",
	Name:      "requests_total",
	Help:      "",
})

var requestErrorCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "client",
	Name:      "request_errors_total",
	Help:      "",
})

var pollCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "poller",
	Name:      "polls_total",
	Help:      "",
}, []string{"result"})

var commandCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "commands",
	Name:      "commands_total",
	Help:      "",
}, []string{"command", "result"})

var eventCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "receptor",
	Name:      "events_total",
	Help:      "",
}, []string{"kind"})

var publishErrorCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "mqtt",
	Name:      "publish_errors_total",
	Help:      "",
})
