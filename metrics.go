package conformance

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks validation counters using lock-free atomic operations.
// All methods are safe for concurrent use. Metrics also implements
// prometheus.Collector so it can be registered on any registry.
type Metrics struct {
	// Validation counts
	validationsTotal atomic.Uint64
	validationsValid atomic.Uint64

	// Status counts
	statusSuccess atomic.Uint64
	statusWarning atomic.Uint64
	statusFailed  atomic.Uint64

	// Timing (stored as nanoseconds)
	validationTimeTotal atomic.Uint64
	validationTimeMin   atomic.Uint64
	validationTimeMax   atomic.Uint64

	// Compiled schema cache
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	// Issue counts by severity
	fatalsTotal   atomic.Uint64
	errorsTotal   atomic.Uint64
	warningsTotal atomic.Uint64
	infosTotal    atomic.Uint64

	// Sub-checker failures contained by the engine
	containedFailures atomic.Uint64

	// Per-stage timing
	stageTiming sync.Map // map[string]*stageMetrics
}

// stageMetrics tracks metrics for a single validation stage.
type stageMetrics struct {
	invocations atomic.Uint64
	totalTime   atomic.Uint64 // nanoseconds
	issuesFound atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// first value becomes the minimum
	m.validationTimeMin.Store(^uint64(0))
	return m
}

// --- Recording Methods ---

// RecordResult records a completed validation and its issues.
func (m *Metrics) RecordResult(duration time.Duration, r *Result) {
	if r == nil {
		return
	}
	m.RecordValidation(duration, r.Valid)

	switch r.Status {
	case StatusSuccess:
		m.statusSuccess.Add(1)
	case StatusWarning:
		m.statusWarning.Add(1)
	case StatusFailed:
		m.statusFailed.Add(1)
	}

	for _, issue := range r.Issues {
		m.RecordIssue(issue.Severity)
	}
}

// RecordValidation records a completed validation.
func (m *Metrics) RecordValidation(duration time.Duration, valid bool) {
	m.validationsTotal.Add(1)
	if valid {
		m.validationsValid.Add(1)
	}

	ns := uint64(duration.Nanoseconds()) //nolint:gosec // durations are non-negative
	m.validationTimeTotal.Add(ns)

	for {
		old := m.validationTimeMin.Load()
		if ns >= old || m.validationTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}

	for {
		old := m.validationTimeMax.Load()
		if ns <= old || m.validationTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordCacheHit records a compiled-schema cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a compiled-schema cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordIssue records an issue based on severity.
func (m *Metrics) RecordIssue(severity Severity) {
	switch severity {
	case SeverityFatal:
		m.fatalsTotal.Add(1)
	case SeverityError:
		m.errorsTotal.Add(1)
	case SeverityWarning:
		m.warningsTotal.Add(1)
	case SeverityInformation:
		m.infosTotal.Add(1)
	}
}

// RecordContainedFailure records a sub-checker failure that was converted into an issue.
func (m *Metrics) RecordContainedFailure() {
	m.containedFailures.Add(1)
}

// RecordStage records metrics for a validation stage.
func (m *Metrics) RecordStage(name string, duration time.Duration, issuesFound int) {
	sm := m.getOrCreateStageMetrics(name)
	sm.invocations.Add(1)
	sm.totalTime.Add(uint64(duration.Nanoseconds())) //nolint:gosec // durations are non-negative
	sm.issuesFound.Add(uint64(issuesFound))          //nolint:gosec // counts are non-negative
}

func (m *Metrics) getOrCreateStageMetrics(name string) *stageMetrics {
	if v, ok := m.stageTiming.Load(name); ok {
		return v.(*stageMetrics)
	}
	actual, _ := m.stageTiming.LoadOrStore(name, &stageMetrics{})
	return actual.(*stageMetrics)
}

// --- Query Methods ---

// ValidationsTotal returns the total number of validations performed.
func (m *Metrics) ValidationsTotal() uint64 {
	return m.validationsTotal.Load()
}

// ValidationsValid returns the number of valid validations.
func (m *Metrics) ValidationsValid() uint64 {
	return m.validationsValid.Load()
}

// ValidationRate returns the fraction of valid validations (0.0 to 1.0).
func (m *Metrics) ValidationRate() float64 {
	total := m.validationsTotal.Load()
	if total == 0 {
		return 0
	}
	return float64(m.validationsValid.Load()) / float64(total)
}

// AverageValidationTime returns the average validation duration.
func (m *Metrics) AverageValidationTime() time.Duration {
	total := m.validationsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.validationTimeTotal.Load() / total) //nolint:gosec // nanoseconds within int64 range
}

// MinValidationTime returns the minimum validation duration.
func (m *Metrics) MinValidationTime() time.Duration {
	minVal := m.validationTimeMin.Load()
	if minVal == ^uint64(0) {
		return 0
	}
	return time.Duration(minVal) //nolint:gosec // nanoseconds within int64 range
}

// MaxValidationTime returns the maximum validation duration.
func (m *Metrics) MaxValidationTime() time.Duration {
	return time.Duration(m.validationTimeMax.Load()) //nolint:gosec // nanoseconds within int64 range
}

// StatusCount returns how many validations ended with the given status.
func (m *Metrics) StatusCount(s Status) uint64 {
	switch s {
	case StatusSuccess:
		return m.statusSuccess.Load()
	case StatusWarning:
		return m.statusWarning.Load()
	case StatusFailed:
		return m.statusFailed.Load()
	default:
		return 0
	}
}

// IssueCount returns the total issues recorded for a severity.
func (m *Metrics) IssueCount(s Severity) uint64 {
	switch s {
	case SeverityFatal:
		return m.fatalsTotal.Load()
	case SeverityError:
		return m.errorsTotal.Load()
	case SeverityWarning:
		return m.warningsTotal.Load()
	case SeverityInformation:
		return m.infosTotal.Load()
	default:
		return 0
	}
}

// CacheHitRate returns the compiled-schema cache hit rate (0.0 to 1.0).
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// ContainedFailures returns how many sub-checker failures were contained.
func (m *Metrics) ContainedFailures() uint64 {
	return m.containedFailures.Load()
}

// StageStats holds statistics for a validation stage.
type StageStats struct {
	Name        string        `json:"name"`
	Invocations uint64        `json:"invocations"`
	TotalTime   time.Duration `json:"total_time"`
	AvgTime     time.Duration `json:"avg_time"`
	IssuesFound uint64        `json:"issues_found"`
}

// StageStats returns statistics for a specific stage.
func (m *Metrics) StageStats(name string) (StageStats, bool) {
	v, ok := m.stageTiming.Load(name)
	if !ok {
		return StageStats{Name: name}, false
	}
	return v.(*stageMetrics).stats(name), true
}

// AllStageStats returns statistics for all stages.
func (m *Metrics) AllStageStats() []StageStats {
	var stats []StageStats
	m.stageTiming.Range(func(key, value any) bool {
		stats = append(stats, value.(*stageMetrics).stats(key.(string)))
		return true
	})
	return stats
}

func (sm *stageMetrics) stats(name string) StageStats {
	invocations := sm.invocations.Load()
	totalTime := sm.totalTime.Load()

	var avg time.Duration
	if invocations > 0 {
		avg = time.Duration(totalTime / invocations) //nolint:gosec // nanoseconds within int64 range
	}
	return StageStats{
		Name:        name,
		Invocations: invocations,
		TotalTime:   time.Duration(totalTime), //nolint:gosec // nanoseconds within int64 range
		AvgTime:     avg,
		IssuesFound: sm.issuesFound.Load(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.validationsTotal.Store(0)
	m.validationsValid.Store(0)
	m.statusSuccess.Store(0)
	m.statusWarning.Store(0)
	m.statusFailed.Store(0)
	m.validationTimeTotal.Store(0)
	m.validationTimeMin.Store(^uint64(0))
	m.validationTimeMax.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.fatalsTotal.Store(0)
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)
	m.infosTotal.Store(0)
	m.containedFailures.Store(0)

	m.stageTiming.Range(func(key, _ any) bool {
		m.stageTiming.Delete(key)
		return true
	})
}

// --- Prometheus export ---

const metricsNamespace = "fhir_conformance"

var (
	descValidations = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "validations_total"),
		"Total number of validations by resulting status.",
		[]string{"status"}, nil,
	)
	descIssues = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "issues_total"),
		"Total number of issues reported by severity.",
		[]string{"severity"}, nil,
	)
	descDuration = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "validation_seconds_total"),
		"Cumulative time spent validating.",
		nil, nil,
	)
	descStageDuration = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "stage", "seconds_total"),
		"Cumulative time spent per validation stage.",
		[]string{"stage"}, nil,
	)
	descSchemaCache = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "schema_cache", "requests_total"),
		"Compiled schema cache lookups by outcome.",
		[]string{"outcome"}, nil,
	)
	descContained = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "contained_failures_total"),
		"Sub-checker failures converted into issues.",
		nil, nil,
	)
)

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- descValidations
	ch <- descIssues
	ch <- descDuration
	ch <- descStageDuration
	ch <- descSchemaCache
	ch <- descContained
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, s := range []Status{StatusSuccess, StatusWarning, StatusFailed} {
		ch <- prometheus.MustNewConstMetric(descValidations, prometheus.CounterValue, float64(m.StatusCount(s)), string(s))
	}
	for _, s := range []Severity{SeverityFatal, SeverityError, SeverityWarning, SeverityInformation} {
		ch <- prometheus.MustNewConstMetric(descIssues, prometheus.CounterValue, float64(m.IssueCount(s)), string(s))
	}
	ch <- prometheus.MustNewConstMetric(descDuration, prometheus.CounterValue,
		time.Duration(m.validationTimeTotal.Load()).Seconds()) //nolint:gosec // nanoseconds within int64 range
	for _, st := range m.AllStageStats() {
		ch <- prometheus.MustNewConstMetric(descStageDuration, prometheus.CounterValue, st.TotalTime.Seconds(), st.Name)
	}
	ch <- prometheus.MustNewConstMetric(descSchemaCache, prometheus.CounterValue, float64(m.cacheHits.Load()), "hit")
	ch <- prometheus.MustNewConstMetric(descSchemaCache, prometheus.CounterValue, float64(m.cacheMisses.Load()), "miss")
	ch <- prometheus.MustNewConstMetric(descContained, prometheus.CounterValue, float64(m.containedFailures.Load()))
}
