package main

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gofhir/conformance/config"
	"github.com/gofhir/conformance/definitions"
	"github.com/gofhir/conformance/engine"
	"github.com/gofhir/conformance/pkg/logger"
)

// configEnv names the config file when --config is not given.
const configEnv = "FHIR_CONFORMANCE_CONFIG"

// globalFlags holds the persistent flags shared by all subcommands.
type globalFlags struct {
	verbose    bool
	configPath string
}

// NewRootCmd creates a new root command instance.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "fhir-conformance",
		Short:         "Validate FHIR R4 resources against the base specification and a profile layer",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging to stderr")
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file (default $"+configEnv+")")

	cmd.AddCommand(
		newValidateCmd(flags.validatorFactory),
		newServeCmd(flags),
		newVersionCmd(),
	)

	return cmd
}

// loadConfig reads the config file when one is named and falls back to the
// environment otherwise.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	path := f.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return config.LoadFromEnv(), nil
	}
	return config.Load(path)
}

// setupLogger installs the configured logger as the default.
func (f *globalFlags) setupLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Logging.Level)
	if f.verbose {
		level = logger.LevelDebug
	}
	l := logger.NewWithFormat(os.Stderr, level, logger.ParseFormat(cfg.Logging.Format))
	logger.SetDefault(l)
	return l
}

// buildValidator loads the definitions and creates a validator. Definition
// files that fail to load are logged; the validator serves what was loaded.
func buildValidator(cfg *config.Config, log *logger.Logger, reg prometheus.Registerer) *engine.Validator {
	store := definitions.NewStore(cfg.Definitions)
	if _, err := store.Load(); err != nil {
		log.Warn("some definitions failed to load: %v", err)
	}

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithProfileConfig(cfg.ProfileLayer),
		engine.WithSchemaCacheSize(cfg.Engine.SchemaCacheSize),
		engine.WithWorkers(cfg.Engine.Workers),
	}
	if reg != nil {
		opts = append(opts, engine.WithRegisterer(reg))
	}
	return engine.New(store, opts...)
}

// validatorFactory builds a validator for one-shot commands.
func (f *globalFlags) validatorFactory() (*engine.Validator, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	log := f.setupLogger(cfg)
	return buildValidator(cfg, log, nil), nil
}
