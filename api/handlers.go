package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/gofhir/conformance"
	"github.com/gofhir/conformance/definitions"
	"github.com/gofhir/conformance/engine"
	"github.com/gofhir/conformance/profile"
	"github.com/gofhir/conformance/worker"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 16 << 20

// ContentTypeFHIRJSON is the FHIR JSON media type.
const ContentTypeFHIRJSON = "application/fhir+json"

// Handlers contains all HTTP handlers.
type Handlers struct {
	validator *engine.Validator
	started   time.Time
}

// NewHandlers creates new handlers.
func NewHandlers(v *engine.Validator) *Handlers {
	return &Handlers{
		validator: v,
		started:   time.Now(),
	}
}

// Validate validates a resource against the base specification only.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	h.validate(w, r, conformance.BaseOptions()...)
}

// ValidateProfile validates a resource against the base specification and
// the profile layer in strict mode.
func (h *Handlers) ValidateProfile(w http.ResponseWriter, r *http.Request) {
	h.validate(w, r, conformance.StrictProfileOptions()...)
}

func (h *Handlers) validate(w http.ResponseWriter, r *http.Request, layer ...conformance.Option) {
	var req ValidationRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Resource == nil {
		respondError(w, http.StatusBadRequest, "resource is required")
		return
	}

	start := time.Now()
	result := h.validator.Validate(req.Resource, req.options(layer...))
	respond(w, http.StatusOK, newResponse(result, time.Since(start)))
}

// ValidateBatch validates up to engine.MaxBatchSize resources against the
// base specification. Each entry is validated independently.
func (h *Handlers) ValidateBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []ValidationRequest
	if err := decodeBody(w, r, &reqs); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(reqs) > engine.MaxBatchSize {
		respondError(w, http.StatusBadRequest, ErrBatchTooLarge.Error())
		return
	}

	jobs := make([]worker.Job, len(reqs))
	for i := range reqs {
		jobs[i] = worker.Job{
			ID:       uuid.NewString(),
			Document: reqs[i].Resource,
			Options:  reqs[i].options(conformance.BaseOptions()...),
		}
	}

	batch := h.validator.RunBatch(r.Context(), jobs)

	responses := make([]ValidationResponse, len(jobs))
	for i, jr := range batch.Results {
		if jr == nil {
			responses[i] = newResponse(notRun(reqs[i].Resource, r.Context().Err()), 0)
			continue
		}
		responses[i] = newResponse(jr.Result, jr.Duration)
	}
	respond(w, http.StatusOK, responses)
}

// notRun is the result of a batch entry that was never validated.
func notRun(doc any, cause error) *conformance.Result {
	var rt *string
	if obj, ok := doc.(map[string]any); ok {
		if s, ok := obj["resourceType"].(string); ok {
			rt = &s
		}
	}
	if cause == nil {
		cause = errors.New("not started")
	}
	return conformance.Failed(rt, conformance.Fatal(conformance.CodeValidationException).
		Details(fmt.Sprintf("Validation failed: %v", cause)).
		From(conformance.OriginEngine).
		Build())
}

// ResourceTypes lists the resource types with a loaded base definition.
func (h *Handlers) ResourceTypes(w http.ResponseWriter, r *http.Request) {
	types := []string{}
	if catalog, ok := h.validator.Provider().(definitions.Catalog); ok {
		types = append(types, catalog.ResourceTypes()...)
	}
	respond(w, http.StatusOK, types)
}

// Profile returns the base StructureDefinition for a resource type, or the
// profile-layer definition when layer=profile is given.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	resourceType := chi.URLParam(r, "resourceType")

	var p *definitions.Profile
	if r.URL.Query().Get("layer") == "profile" {
		if l := h.validator.ProfileLayer().Lookup(resourceType, ""); l.State == profile.Resolved {
			p = l.Profile
		}
	} else if catalog, ok := h.validator.Provider().(definitions.Catalog); ok {
		p = catalog.BaseProfile(resourceType)
	}

	if p == nil {
		respondError(w, http.StatusNotFound, "Profile not found for resource type: "+resourceType)
		return
	}
	if len(p.Raw) == 0 {
		respond(w, http.StatusOK, map[string]string{
			"resourceType": "StructureDefinition",
			"id":           p.ID,
			"url":          p.URL,
			"name":         p.Name,
			"type":         p.Type,
			"kind":         p.Kind,
		})
		return
	}

	w.Header().Set("Content-Type", ContentTypeFHIRJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Raw)
}

// ServerInfo describes the service and what it has loaded.
func (h *Handlers) ServerInfo(w http.ResponseWriter, r *http.Request) {
	info := ServerInfo{
		Name:                conformance.ServerName,
		Version:             conformance.ServerVersion,
		Description:         conformance.ServerDescription,
		FHIRVersion:         conformance.R4.String(),
		SupportedFormats:    []string{ContentTypeFHIRJSON, "application/json"},
		SupportedOperations: []string{"validate-standard", "validate-profile", "batch-validate", "resource-info"},
	}
	if catalog, ok := h.validator.Provider().(definitions.Catalog); ok {
		stats := catalog.Stats()
		info.Definitions = &stats
	}
	respond(w, http.StatusOK, info)
}

// HealthCheck reports liveness and process uptime.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	respond(w, http.StatusOK, HealthStatus{
		Status:        "healthy",
		Timestamp:     now.UTC().Format(time.RFC3339),
		Version:       conformance.ServerVersion,
		UptimeSeconds: h.uptime(now).Seconds(),
	})
}

// uptime is measured from the process start time, or from handler
// creation when the process table is unavailable.
func (h *Handlers) uptime(now time.Time) time.Duration {
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if created, err := p.CreateTime(); err == nil {
			return now.Sub(time.UnixMilli(created))
		}
	}
	return now.Sub(h.started)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}
