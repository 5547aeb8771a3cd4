package definitions

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/conformance/pkg/logger"
)

// Default file names inside the base definitions directory, as published
// in the FHIR R4 definitions package.
const (
	DefaultSchemaFile    = "fhir.schema.json"
	DefaultValueSetsFile = "valuesets.json"
)

// DefaultProfileFiles are the base StructureDefinition bundles.
var DefaultProfileFiles = []string{"profiles-resources.json", "profiles-types.json"}

// StoreConfig locates the definition files on disk.
type StoreConfig struct {
	// Dir is the base definitions directory
	Dir string `yaml:"dir"`

	// SchemaFile is relative to Dir; a directory of the same name holding the
	// file is also accepted
	SchemaFile string `yaml:"schema_file"`

	// ProfileFiles are bundles of base StructureDefinitions, relative to Dir
	ProfileFiles []string `yaml:"profile_files"`

	// ValueSetsFile is a bundle of ValueSets, relative to Dir
	ValueSetsFile string `yaml:"valuesets_file"`

	// IGDir holds implementation guide resources (StructureDefinition-*.json, ValueSet-*.json)
	IGDir string `yaml:"ig_dir"`
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.SchemaFile == "" {
		c.SchemaFile = DefaultSchemaFile
	}
	if len(c.ProfileFiles) == 0 {
		c.ProfileFiles = DefaultProfileFiles
	}
	if c.ValueSetsFile == "" {
		c.ValueSetsFile = DefaultValueSetsFile
	}
	return c
}

// Store is a Provider that loads its Snapshot from disk on first access.
// Missing or unreadable files are logged and skipped; the store then serves
// whatever could be loaded.
type Store struct {
	cfg StoreConfig

	once sync.Once
	snap *Snapshot
	err  error
}

// NewStore creates a store. Nothing is read until the first lookup or Load.
func NewStore(cfg StoreConfig) *Store {
	return &Store{cfg: cfg.withDefaults()}
}

// Load reads the definitions once and returns the snapshot. The returned
// error joins the per-file failures; the snapshot is usable regardless.
func (s *Store) Load() (*Snapshot, error) {
	s.once.Do(func() {
		s.snap, s.err = load(s.cfg)
	})
	return s.snap, s.err
}

func (s *Store) snapshot() *Snapshot {
	snap, _ := s.Load()
	return snap
}

// Schema implements Provider.
func (s *Store) Schema() *Schema { return s.snapshot().Schema() }

// Profile implements Provider.
func (s *Store) Profile(idOrURL string) *Profile { return s.snapshot().Profile(idOrURL) }

// IsKnownResourceType implements Provider.
func (s *Store) IsKnownResourceType(name string) bool {
	return s.snapshot().IsKnownResourceType(name)
}

// ValueSet implements Provider.
func (s *Store) ValueSet(url string) *ValueSet { return s.snapshot().ValueSet(url) }

// ResourceTypes implements Catalog.
func (s *Store) ResourceTypes() []string { return s.snapshot().ResourceTypes() }

// BaseProfile implements Catalog.
func (s *Store) BaseProfile(resourceType string) *Profile {
	return s.snapshot().BaseProfile(resourceType)
}

// Stats implements Catalog.
func (s *Store) Stats() Stats { return s.snapshot().Stats() }

var _ Catalog = (*Store)(nil)

func load(cfg StoreConfig) (*Snapshot, error) {
	logger.Info("Loading FHIR definitions from %s", cfg.Dir)

	var (
		c    Contents
		errs []error
	)

	if cfg.Dir != "" {
		schema, err := loadSchema(cfg)
		if err != nil {
			errs = append(errs, err)
		}
		c.Schema = schema

		for _, name := range cfg.ProfileFiles {
			data, err := readOptional(filepath.Join(cfg.Dir, name))
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if data == nil {
				continue
			}
			profiles, err := profilesFromBundle(data)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
			c.BaseProfiles = append(c.BaseProfiles, profiles...)
		}

		if data, err := readOptional(filepath.Join(cfg.Dir, cfg.ValueSetsFile)); err != nil {
			errs = append(errs, err)
		} else if data != nil {
			vs, err := valueSetsFromBundle(data)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", cfg.ValueSetsFile, err))
			}
			c.ValueSets = append(c.ValueSets, vs...)
		}
	}

	if cfg.IGDir != "" {
		profiles, valueSets, err := loadImplementationGuide(cfg.IGDir)
		if err != nil {
			errs = append(errs, err)
		}
		c.Profiles = append(c.Profiles, profiles...)
		c.ValueSets = append(c.ValueSets, valueSets...)
	}

	snap := NewSnapshot(c)
	st := snap.Stats()
	logger.Info("Loaded %d schema definitions, %d base profiles, %d profiles, %d value sets",
		st.SchemaDefinitions, st.BaseProfiles, st.Profiles, st.ValueSets)

	err := errors.Join(errs...)
	if err != nil {
		logger.Warn("Definitions loaded with errors: %v", err)
	}
	return snap, err
}

// readOptional returns nil data for a missing file.
func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("FHIR resource file not found: %s", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func loadSchema(cfg StoreConfig) (*Schema, error) {
	path := filepath.Join(cfg.Dir, cfg.SchemaFile)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		// the R4 distribution unpacks fhir.schema.json.zip into a directory
		path = filepath.Join(path, filepath.Base(cfg.SchemaFile))
	}

	data, err := readOptional(path)
	if err != nil || data == nil {
		return nil, err
	}
	schema, err := NewSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schema, nil
}

// bundle is the part of a Bundle the loader needs. Entries stay raw until
// their resourceType is known.
type bundle struct {
	ResourceType string `json:"resourceType"`
	Entry        []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
}

type probe struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
}

func profilesFromBundle(data []byte) ([]*Profile, error) {
	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}

	var out []*Profile
	for _, e := range b.Entry {
		p, err := decodeProfile(e.Resource)
		if err != nil || p == nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func valueSetsFromBundle(data []byte) ([]*ValueSet, error) {
	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}

	var out []*ValueSet
	for _, e := range b.Entry {
		vs, err := decodeValueSet(e.Resource)
		if err != nil || vs == nil {
			continue
		}
		out = append(out, vs)
	}
	return out, nil
}

// decodeProfile returns nil for resources that are not StructureDefinitions.
func decodeProfile(data []byte) (*Profile, error) {
	var pr probe
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, err
	}
	if pr.ResourceType != "StructureDefinition" {
		return nil, nil
	}

	var sd r4.StructureDefinition
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("failed to parse StructureDefinition %s: %w", pr.ID, err)
	}
	p := ProfileFromR4(pr.ID, &sd)
	p.Raw = data
	return p, nil
}

// decodeValueSet returns nil for resources that are not ValueSets.
func decodeValueSet(data []byte) (*ValueSet, error) {
	var pr probe
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, err
	}
	if pr.ResourceType != "ValueSet" {
		return nil, nil
	}

	var vs r4.ValueSet
	if err := json.Unmarshal(data, &vs); err != nil {
		return nil, fmt.Errorf("failed to parse ValueSet %s: %w", pr.ID, err)
	}
	return ValueSetFromR4(&vs), nil
}

// loadImplementationGuide reads every JSON resource in dir. Files are read
// in name order so that later duplicates win deterministically.
func loadImplementationGuide(dir string) ([]*Profile, []*ValueSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read implementation guide directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if entry.Name() == "package.json" || entry.Name() == ".index.json" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var (
		profiles  []*Profile
		valueSets []*ValueSet
		failed    int
	)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			failed++
			logger.Warn("Failed to load %s: %v", name, err)
			continue
		}

		var pr probe
		if err := json.Unmarshal(data, &pr); err != nil {
			failed++
			logger.Warn("Failed to load %s: %v", name, err)
			continue
		}
		if pr.ID == "" {
			pr.ID = strings.TrimSuffix(name, ".json")
		}

		switch pr.ResourceType {
		case "StructureDefinition":
			var sd r4.StructureDefinition
			if err := json.Unmarshal(data, &sd); err != nil {
				failed++
				logger.Warn("Failed to load %s: %v", name, err)
				continue
			}
			p := ProfileFromR4(pr.ID, &sd)
			p.Raw = data
			profiles = append(profiles, p)
			logger.Debug("Loaded StructureDefinition/%s from %s", pr.ID, name)
		case "ValueSet":
			vs, err := decodeValueSet(data)
			if err != nil {
				failed++
				logger.Warn("Failed to load %s: %v", name, err)
				continue
			}
			valueSets = append(valueSets, vs)
			logger.Debug("Loaded ValueSet/%s from %s", pr.ID, name)
		}
	}

	logger.Info("Loaded %d profiles and %d value sets from implementation guide %s",
		len(profiles), len(valueSets), dir)
	if failed > 0 {
		return profiles, valueSets, fmt.Errorf("%d implementation guide file(s) could not be loaded", failed)
	}
	return profiles, valueSets, nil
}
