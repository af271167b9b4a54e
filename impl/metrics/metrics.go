// Package metrics records the outcome of a run as Prometheus metrics. A run is a
// batch job rather than a server so there is no metrics endpoint. Instead the
// metrics are written to a node exporter textfile and/or pushed to a Pushgateway
// when the run finishes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// These are the metrics functions exposed by the package. By default they are all
// NOP functions to minimize overhead when metrics are not enabled. The 'Init'
// function replaces them with functions having implementations.

var IncImagesByOutcome withLabels = func(string, string) {}
var ObserveImageSeconds observe = func(string, float64) {}
var SetRunSeconds gauge = func(float64) {}
var SetRunImages gauge = func(float64) {}

type withLabels func(outcome string, ns string)
type observe func(outcome string, seconds float64)
type gauge func(float64)

// Outcome label values
const (
	Pulled  = "pulled"
	Skipped = "skipped"
	Failed  = "failed"
)

const (
	namespace     = "airgap"
	images_total  = "images_total"
	image_seconds = "image_transfer_seconds"
	run_seconds   = "last_run_seconds"
	run_images    = "last_run_images"
	outcome_label = "outcome"
	ns_label      = "ns"
	defaultJob    = "airgap"
)

// reg holds only the metrics of this package. It is nil until Init is called.
var reg *prometheus.Registry

// Init creates all the metrics in a new registry and assigns the package metrics
// functions. Unless this function is called, all the metric functions exposed by
// the package are NOP functions and Write and Push do nothing.
func Init() {
	reg = prometheus.NewRegistry()
	factory := promauto.With(reg)

	imagesTotal := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name:      images_total,
			Namespace: namespace,
			Help:      "Images processed by outcome and upstream registry",
		},
		[]string{outcome_label, ns_label},
	)
	IncImagesByOutcome = func(outcome string, ns string) {
		imagesTotal.With(prometheus.Labels{outcome_label: outcome, ns_label: ns}).Inc()
	}

	///
	imageSeconds := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      image_seconds,
			Namespace: namespace,
			Help:      "Time to transfer one image",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{outcome_label},
	)
	ObserveImageSeconds = func(outcome string, seconds float64) {
		imageSeconds.With(prometheus.Labels{outcome_label: outcome}).Observe(seconds)
	}

	///
	runSeconds := factory.NewGauge(
		prometheus.GaugeOpts{
			Name:      run_seconds,
			Namespace: namespace,
			Help:      "Wall clock duration of the last run",
		},
	)
	SetRunSeconds = runSeconds.Set

	///
	runImages := factory.NewGauge(
		prometheus.GaugeOpts{
			Name:      run_images,
			Namespace: namespace,
			Help:      "Number of images in the last run",
		},
	)
	SetRunImages = runImages.Set
}

// Write writes the metrics to the passed file in the text exposition format for
// the node exporter textfile collector. If the file is empty, or Init was not
// called, then nothing is done.
func Write(textfile string) error {
	if textfile == "" || reg == nil {
		return nil
	}
	return prometheus.WriteToTextfile(textfile, reg)
}

// Push pushes the metrics to the Pushgateway at the passed URL, replacing any
// metrics previously pushed for the job. If the URL is empty, or Init was not
// called, then nothing is done.
func Push(url string, job string) error {
	if url == "" || reg == nil {
		return nil
	}
	if job == "" {
		job = defaultJob
	}
	return push.New(url, job).Gatherer(reg).Push()
}
