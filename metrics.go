package main

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vaultmerge/vaultmerge/process"
)

const namespace = "vaultmerge"

type procCollector struct {
	upDesc         *prometheus.Desc
	stateDesc      *prometheus.Desc
	exitStatusDesc *prometheus.Desc
	startTimeDesc  *prometheus.Desc
	stopTimeDesc   *prometheus.Desc
	readyDesc      *prometheus.Desc
	orchestrator   *Orchestrator
}

// NewProcCollector returns new Collector exposing the background processes
// and the readiness of every account
func NewProcCollector(o *Orchestrator) *procCollector {
	labelNames := []string{"name"}

	return &procCollector{
		upDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "up"),
			"Process Up",
			labelNames,
			nil,
		),
		stateDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "state"),
			"Process State",
			labelNames,
			nil,
		),
		exitStatusDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "exit_status"),
			"Process Exit Status",
			labelNames,
			nil,
		),
		startTimeDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "start_time_seconds"),
			"Process start time",
			labelNames,
			nil,
		),
		stopTimeDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "stop_time_seconds"),
			"Process stop time",
			labelNames,
			nil,
		),
		readyDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "account", "ready"),
			"Account reported its WebDAV URL",
			[]string{"name", "port"},
			nil,
		),
		orchestrator: o,
	}
}

// Describe generates prometheus metric description
func (c *procCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.upDesc
	ch <- c.stateDesc
	ch <- c.exitStatusDesc
	ch <- c.startTimeDesc
	ch <- c.stopTimeDesc
	ch <- c.readyDesc
}

// Collect gathers prometheus metrics for all background processes and accounts
func (c *procCollector) Collect(ch chan<- prometheus.Metric) {
	c.orchestrator.GetProcessManager().ForEachProcess(func(name string, proc *process.Process) {
		c.collectProcessMetrics(name, proc, ch)
	})
	for _, a := range c.orchestrator.Accounts() {
		ready := 0.0
		if a.Ready {
			ready = 1
		}
		ch <- prometheus.MustNewConstMetric(c.readyDesc, prometheus.GaugeValue, ready, a.Name, strconv.Itoa(a.Port))
	}
}

func (c *procCollector) collectProcessMetrics(name string, proc *process.Process, ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.stateDesc, prometheus.GaugeValue, float64(proc.GetState()), name)
	ch <- prometheus.MustNewConstMetric(c.exitStatusDesc, prometheus.GaugeValue, float64(proc.GetExitstatus()), name)

	if proc.IsRunning() {
		ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, 1, name)
		ch <- prometheus.MustNewConstMetric(c.startTimeDesc, prometheus.CounterValue, float64(proc.GetStartTime().Unix()), name)
	} else {
		ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, 0, name)
	}
	if proc.GetState() == process.Exited {
		ch <- prometheus.MustNewConstMetric(c.stopTimeDesc, prometheus.GaugeValue, float64(proc.GetStopTime().Unix()), name)
	}
}
