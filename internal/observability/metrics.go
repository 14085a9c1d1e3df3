package observability

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the site's Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests         *prometheus.CounterVec
	HTTPDurations        *prometheus.HistogramVec
	Calculations         *prometheus.CounterVec
	CalculationDurations *prometheus.HistogramVec
	ValidationFailures   *prometheus.CounterVec
	ContactMessages      *prometheus.CounterVec
}

// NewCollector registers the metrics against reg, or the default registry
// when reg is nil. Registering twice against the same registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	httpRequests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Handled HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}

	httpDurations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"}), "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	calculations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solar_calculations_total",
		Help: "Solar calculator submissions that left the running state, by outcome.",
	}, []string{"outcome"}), "solar_calculations_total")
	if err != nil {
		return nil, err
	}

	calcDurations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solar_calculation_duration_seconds",
		Help:    "Time from the first progress phase to the outcome, in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 12, 15, 20, 30, 60},
	}, []string{"outcome"}), "solar_calculation_duration_seconds")
	if err != nil {
		return nil, err
	}

	validation, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solar_validation_failures_total",
		Help: "Rejected calculator fields.",
	}, []string{"field"}), "solar_validation_failures_total")
	if err != nil {
		return nil, err
	}

	contact, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_messages_total",
		Help: "Contact form submissions by result.",
	}, []string{"result"}), "contact_messages_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:             gatherer,
		HTTPRequests:         httpRequests,
		HTTPDurations:        httpDurations,
		Calculations:         calculations,
		CalculationDurations: calcDurations,
		ValidationFailures:   validation,
		ContactMessages:      contact,
	}, nil
}

// ObserveCalculation records one finished calculator submission.
func (c *Collector) ObserveCalculation(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.Calculations.WithLabelValues(outcome).Inc()
	c.CalculationDurations.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveValidationFailure counts one rejected calculator field.
func (c *Collector) ObserveValidationFailure(field string) {
	if c == nil {
		return
	}
	c.ValidationFailures.WithLabelValues(field).Inc()
}

// ObserveHTTP records one handled request. An empty route is reported as
// "unmatched" to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, code int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveContact counts a contact form submission.
func (c *Collector) ObserveContact(ok bool) {
	if c == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	c.ContactMessages.WithLabelValues(result).Inc()
}

// RegisterGaugeFunc exposes fn as a gauge sampled at scrape time.
func RegisterGaugeFunc(reg prometheus.Registerer, name, help string, fn func() float64) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	_, err := register(reg, prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn), name)
	return err
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var zero T
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
		return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
	}
	return zero, err
}
