package metrics

import (
	"github.com/cloud-bulldozer/graph-crudperf/pkg/logging"
	result "github.com/cloud-bulldozer/graph-crudperf/pkg/results"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job is the Pushgateway job phase summaries are grouped under.
const Job = "graph-crudperf"

var phaseLabels = []string{"driver", "scenario", "phase"}

// Collectors holds the gauges of one run.
type Collectors struct {
	Latency *prometheus.GaugeVec
	Samples *prometheus.GaugeVec
	Success *prometheus.GaugeVec
}

// NewCollectors returns unregistered gauges for one run.
func NewCollectors() Collectors {
	return Collectors{
		Latency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "crudperf",
			Name:      "latency_milliseconds",
			Help:      "Per phase latency statistic in milliseconds.",
		}, append(phaseLabels, "stat")),
		Samples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "crudperf",
			Name:      "samples",
			Help:      "Samples recorded by the phase.",
		}, phaseLabels),
		Success: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "crudperf",
			Name:      "phase_complete",
			Help:      "1 when every operation of the phase succeeded.",
		}, phaseLabels),
	}
}

// Observe sets the gauges from every phase of sr. Statistics of empty phases
// are skipped.
func (c Collectors) Observe(sr result.ScenarioResults) {
	for _, r := range sr.Results {
		labels := prometheus.Labels{"driver": r.Driver, "scenario": r.Scenario, "phase": r.Name}
		c.Samples.With(labels).Set(float64(r.Summary.Count))
		complete := 1.0
		if r.Aborted {
			complete = 0
		}
		c.Success.With(labels).Set(complete)
		if r.Summary.Count == 0 {
			continue
		}
		for stat, v := range map[string]float64{
			"min":    r.Summary.Min,
			"max":    r.Summary.Max,
			"mean":   r.Summary.Mean,
			"stddev": r.Summary.StdDev,
			"p99":    r.P99(),
		} {
			c.Latency.MustCurryWith(labels).WithLabelValues(stat).Set(v)
		}
	}
}

// Push sends the phase summaries of sr to the Pushgateway at url, grouped by
// run uuid.
func Push(url, uuid string, sr result.ScenarioResults) error {
	c := NewCollectors()
	c.Observe(sr)
	logging.Infof("Pushing [%d] phase summaries to %s", len(sr.Results), url)
	err := push.New(url, Job).
		Collector(c.Latency).
		Collector(c.Samples).
		Collector(c.Success).
		Grouping("uuid", uuid).
		Push()
	if err != nil {
		return errors.Wrapf(err, "pushing to %s", url)
	}
	return nil
}
