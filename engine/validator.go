// Package engine provides the Validator service object that runs the
// conformance stages over a document and composes the Result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gofhir/conformance"
	"github.com/gofhir/conformance/definitions"
	"github.com/gofhir/conformance/pkg/logger"
	"github.com/gofhir/conformance/profile"
	"github.com/gofhir/conformance/schema"
	"github.com/gofhir/conformance/semantic"
	"github.com/gofhir/conformance/worker"
)

// MaxBatchSize is the largest batch callers should submit.
const MaxBatchSize = 100

// Stage names used in metrics and logs.
const (
	StageSchema   = "schema"
	StageSemantic = "semantic"
	StageCodings  = "codings"
	StageProfile  = "profile"
)

// Validator is the main conformance validator. It holds a reference to an
// immutable definition provider and no per-call state, so one instance
// serves concurrent calls.
type Validator struct {
	provider definitions.Provider

	schema   *schema.Checker
	semantic *semantic.Checker
	profile  *profile.Checker

	metrics *conformance.Metrics
	log     *logger.Logger
	batch   *worker.BatchRunner
}

// New creates a Validator over provider. A nil provider behaves as an
// empty one: schema checks are skipped and profiles are never loaded.
func New(provider definitions.Provider, opts ...Option) *Validator {
	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}

	if provider == nil {
		provider = definitions.Empty()
	}
	if s.metrics == nil {
		s.metrics = conformance.NewMetrics()
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}

	v := &Validator{
		provider: provider,
		schema:   schema.New(s.cacheSize, schema.WithMetrics(s.metrics)),
		semantic: semantic.New(provider),
		profile:  profile.New(provider, s.profileConfig),
		metrics:  s.metrics,
		log:      s.logger.Named("engine"),
	}
	for _, tr := range s.rules {
		v.semantic.Register(tr.resourceType, tr.rules...)
	}
	v.batch = worker.NewBatchRunner(v.Validate, s.workers)

	if s.registerer != nil {
		if err := s.registerer.Register(v.metrics); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				v.log.Warn("failed to register metrics: %v", err)
			}
		}
	}

	return v
}

// ValidateBytes decodes data and validates it.
func (v *Validator) ValidateBytes(data []byte, opts conformance.ValidationOptions) *conformance.Result {
	start := time.Now()

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		result := conformance.Failed(nil, conformance.Fatal(conformance.CodeInvalidJSON).
			Details(fmt.Sprintf("Invalid JSON: %v", err)).
			From(conformance.OriginEngine).
			Build())
		v.metrics.RecordResult(time.Since(start), result)
		return result
	}
	return v.Validate(doc, opts)
}

// Validate checks a decoded JSON document. It never panics and always
// returns a Result.
func (v *Validator) Validate(doc any, opts conformance.ValidationOptions) (result *conformance.Result) {
	start := time.Now()
	var resourceType *string

	defer func() {
		if r := recover(); r != nil {
			v.log.Error("validation panicked: %v", r)
			result = conformance.Failed(resourceType, conformance.Fatal(conformance.CodeValidationException).
				Details(fmt.Sprintf("%v", r)).
				From(conformance.OriginEngine).
				Build())
		}
		v.metrics.RecordResult(time.Since(start), result)
	}()

	obj, ok := doc.(map[string]any)
	if !ok {
		return conformance.Failed(nil, conformance.Fatal(conformance.CodeInvalidFormat).
			Details("Resource must be a JSON object").
			From(conformance.OriginEngine).
			Build())
	}

	rt, issues, proceed := v.semantic.ResourceType(obj)
	if rt != "" {
		resourceType = &rt
	}
	if !proceed {
		return conformance.Compose(resourceType, issues, opts.StrictProfileLayer)
	}

	issues = append(issues, v.stage(StageSchema, conformance.CodeSchemaValidatorError, conformance.OriginBaseSchema, func() []conformance.Issue {
		return v.schema.Check(obj, rt, v.provider.Schema())
	})...)

	issues = append(issues, v.stage(StageSemantic, conformance.CodeSemanticValidatorErr, conformance.OriginSemanticRule, func() []conformance.Issue {
		return v.semantic.Check(obj, rt)
	})...)

	if opts.ValidateCodeSystems {
		issues = append(issues, v.stage(StageCodings, conformance.CodeSemanticValidatorErr, conformance.OriginSemanticRule, func() []conformance.Issue {
			return semantic.CheckCodings(obj, rt, conformance.SeverityWarning)
		})...)
	}

	if opts.UseProfileLayer {
		issues = append(issues, v.stage(StageProfile, conformance.CodeProfileValidatorErr, conformance.OriginProfileLayer, func() []conformance.Issue {
			return v.profile.Check(obj, rt, opts)
		})...)
	}

	result = conformance.Compose(resourceType, issues, opts.StrictProfileLayer)
	v.log.Debug("validated %s: %s with %d issue(s) in %s", rt, result.Status, len(result.Issues), time.Since(start))
	return result
}

// stage runs one checker. A panic is contained and reported as a single
// warning attributed to origin.
func (v *Validator) stage(name, failureCode string, origin conformance.Origin, check func() []conformance.Issue) (issues []conformance.Issue) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			v.log.Warn("%s stage failed: %v", name, r)
			v.metrics.RecordContainedFailure()
			issues = []conformance.Issue{
				conformance.Warning(failureCode).
					Details(fmt.Sprintf("An unexpected error occurred during %s validation: %v", name, r)).
					From(origin).
					Build(),
			}
		}
		v.metrics.RecordStage(name, time.Since(start), len(issues))
	}()
	return check()
}

// ValidateBatch validates docs independently and returns their results in
// order. A failure in one document never affects the others.
func (v *Validator) ValidateBatch(docs []any, opts conformance.ValidationOptions) []*conformance.Result {
	batch := v.RunBatch(context.Background(), worker.NewJobs(docs, opts))
	results := make([]*conformance.Result, len(batch.Results))
	for i, jr := range batch.Results {
		results[i] = jr.Result
	}
	return results
}

// RunBatch validates jobs with the validator's worker limit.
func (v *Validator) RunBatch(ctx context.Context, jobs []worker.Job) *worker.BatchResult {
	batch := v.batch.Run(ctx, jobs)
	v.log.Debug("batch of %d: %d completed, %d failed in %s",
		batch.TotalJobs, batch.CompletedJobs, batch.FailedJobs, batch.TotalDuration)
	return batch
}

// Metrics returns the validator's metrics.
func (v *Validator) Metrics() *conformance.Metrics {
	return v.metrics
}

// Provider returns the definition provider.
func (v *Validator) Provider() definitions.Provider {
	return v.provider
}

// ProfileLayer returns the profile conformance checker.
func (v *Validator) ProfileLayer() *profile.Checker {
	return v.profile
}
