package api

import (
	"errors"
	"time"

	"github.com/gofhir/conformance"
	"github.com/gofhir/conformance/definitions"
)

// ErrBatchTooLarge is returned when a batch exceeds engine.MaxBatchSize.
var ErrBatchTooLarge = errors.New("batch size cannot exceed 100 resources")

// ValidationRequest is the body of the validate endpoints.
type ValidationRequest struct {
	Resource            any    `json:"resource"`
	Profile             string `json:"profile,omitempty"`
	ValidateCodeSystems *bool  `json:"validate_code_systems,omitempty"`
	ValidateValueSets   *bool  `json:"validate_value_sets,omitempty"`
}

// options builds per-call options. Omitted toggles default to true.
func (r *ValidationRequest) options(layer ...conformance.Option) conformance.ValidationOptions {
	opts := conformance.NewOptions(layer...)
	opts.ProfileURL = r.Profile
	if r.ValidateCodeSystems != nil {
		opts.ValidateCodeSystems = *r.ValidateCodeSystems
	}
	if r.ValidateValueSets != nil {
		opts.ValidateValueSets = *r.ValidateValueSets
	}
	return opts
}

// ValidationResponse wraps a Result with request metadata.
type ValidationResponse struct {
	ValidationResult *conformance.Result `json:"validation_result"`
	ProcessedAt      string              `json:"processed_at"`
	ProcessingTimeMS int64               `json:"processing_time_ms"`
}

func newResponse(result *conformance.Result, elapsed time.Duration) ValidationResponse {
	return ValidationResponse{
		ValidationResult: result,
		ProcessedAt:      time.Now().UTC().Format(time.RFC3339Nano),
		ProcessingTimeMS: elapsed.Milliseconds(),
	}
}

// ServerInfo describes the service.
type ServerInfo struct {
	Name                string             `json:"name"`
	Version             string             `json:"version"`
	Description         string             `json:"description"`
	FHIRVersion         string             `json:"fhir_version"`
	SupportedFormats    []string           `json:"supported_formats"`
	SupportedOperations []string           `json:"supported_operations"`
	Definitions         *definitions.Stats `json:"definitions,omitempty"`
}

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status        string  `json:"status"`
	Timestamp     string  `json:"timestamp"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
