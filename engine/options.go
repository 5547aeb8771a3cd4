package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gofhir/conformance"
	"github.com/gofhir/conformance/pkg/logger"
	"github.com/gofhir/conformance/profile"
	"github.com/gofhir/conformance/semantic"
)

// settings holds the construction-time configuration of a Validator.
type settings struct {
	logger        *logger.Logger
	metrics       *conformance.Metrics
	registerer    prometheus.Registerer
	profileConfig profile.Config
	rules         []typedRules
	cacheSize     int
	workers       int
}

type typedRules struct {
	resourceType string
	rules        []semantic.Rule
}

func defaultSettings() *settings {
	return &settings{
		profileConfig: profile.DefaultConfig(),
	}
}

// Option configures a Validator.
type Option func(*settings)

// WithLogger sets the logger; the package default is used otherwise.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithMetrics shares a Metrics instance instead of creating one.
func WithMetrics(m *conformance.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithRegisterer exports the validator metrics to a Prometheus registerer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(s *settings) {
		s.registerer = r
	}
}

// WithProfileConfig replaces the default profile layer configuration.
func WithProfileConfig(cfg profile.Config) Option {
	return func(s *settings) {
		s.profileConfig = cfg
	}
}

// WithRules adds semantic rules for a resource type.
func WithRules(resourceType string, rules ...semantic.Rule) Option {
	return func(s *settings) {
		s.rules = append(s.rules, typedRules{resourceType: resourceType, rules: rules})
	}
}

// WithSchemaCacheSize bounds the number of compiled schemas kept.
func WithSchemaCacheSize(n int) Option {
	return func(s *settings) {
		s.cacheSize = n
	}
}

// WithWorkers sets the batch parallelism; <= 0 means one per CPU.
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.workers = n
	}
}
