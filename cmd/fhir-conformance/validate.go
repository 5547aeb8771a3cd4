package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/gofhir/conformance"
	"github.com/gofhir/conformance/engine"
)

// OutputFormat specifies the output format.
type OutputFormat string

// Output format constants.
const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// ValidatorFactory creates the validator a command runs with.
type ValidatorFactory func() (*engine.Validator, error)

// InvalidResourcesError is returned when at least one input did not pass.
type InvalidResourcesError struct {
	Invalid int
	Total   int
}

// Error implements the error interface.
func (e *InvalidResourcesError) Error() string {
	return fmt.Sprintf("%d of %d resource(s) failed validation", e.Invalid, e.Total)
}

// FileOutput is the JSON output for one input.
type FileOutput struct {
	Resource string              `json:"resource"`
	Result   *conformance.Result `json:"validation_result"`
	Duration string              `json:"duration"`
}

type validateFlags struct {
	output        string
	profileLayer  bool
	strict        bool
	profileURL    string
	noCodeSystems bool
	noValueSets   bool
	quiet         bool
}

func (f *validateFlags) options() conformance.ValidationOptions {
	return conformance.NewOptions(
		conformance.WithProfileLayer(f.profileLayer, f.strict),
		conformance.WithProfileURL(f.profileURL),
		conformance.WithCodeSystems(!f.noCodeSystems),
		conformance.WithValueSets(!f.noValueSets),
	)
}

func newValidateCmd(factory ValidatorFactory) *cobra.Command {
	flags := &validateFlags{}

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate FHIR JSON resources from files, globs, or stdin (-)",
		Example: `  fhir-conformance validate patient.json
  fhir-conformance validate --profile-layer --strict examples/*.json
  cat patient.json | fhir-conformance validate -o json -`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := factory()
			if err != nil {
				return err
			}
			return runValidate(cmd, v, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", string(OutputText), "Output format: text, json")
	cmd.Flags().BoolVar(&flags.profileLayer, "profile-layer", false, "Also check the implementation guide profile layer")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Make profile layer errors fail validation")
	cmd.Flags().StringVar(&flags.profileURL, "profile", "", "Profile canonical URL overriding the resource type mapping")
	cmd.Flags().BoolVar(&flags.noCodeSystems, "no-code-systems", false, "Skip the coding system pass")
	cmd.Flags().BoolVar(&flags.noValueSets, "no-value-sets", false, "Skip value set membership checks")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Only show errors and warnings")

	return cmd
}

func runValidate(cmd *cobra.Command, v *engine.Validator, flags *validateFlags, args []string) error {
	out := cmd.OutOrStdout()
	format := OutputFormat(strings.ToLower(flags.output))
	opts := flags.options()

	var outputs []FileOutput
	for _, arg := range args {
		if arg == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			outputs = append(outputs, validateData(v, data, "stdin", opts))
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}
		for _, path := range matches {
			outputs = append(outputs, validateFile(v, path, opts))
		}
	}

	if format == OutputJSON {
		data, err := json.MarshalIndent(outputs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		for _, o := range outputs {
			printTextResult(out, o, flags.quiet)
		}
	}

	invalid := 0
	for _, o := range outputs {
		if !o.Result.Valid {
			invalid++
		}
	}
	if invalid > 0 {
		return &InvalidResourcesError{Invalid: invalid, Total: len(outputs)}
	}
	return nil
}

func validateFile(v *engine.Validator, path string, opts conformance.ValidationOptions) FileOutput {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileOutput{
			Resource: path,
			Result: conformance.Failed(nil, conformance.Fatal(conformance.CodeValidationException).
				Details(fmt.Sprintf("Failed to read file: %v", err)).
				From(conformance.OriginEngine).
				Build()),
			Duration: "0s",
		}
	}
	return validateData(v, data, path, opts)
}

func validateData(v *engine.Validator, data []byte, name string, opts conformance.ValidationOptions) FileOutput {
	start := time.Now()
	result := v.ValidateBytes(data, opts)
	return FileOutput{
		Resource: name,
		Result:   result,
		Duration: time.Since(start).Round(time.Microsecond).String(),
	}
}

func printTextResult(w io.Writer, o FileOutput, quiet bool) {
	r := o.Result

	status := "VALID"
	if !r.Valid {
		status = "INVALID"
	}

	fmt.Fprintf(w, "== %s ==\n", o.Resource)
	if r.ResourceType != nil {
		fmt.Fprintf(w, "Resource type: %s\n", *r.ResourceType)
	}
	fmt.Fprintf(w, "Status: %s (%s)\n", status, r.Status)
	fmt.Fprintf(w, "%s\n", r.Message)
	fmt.Fprintf(w, "Errors: %d, Warnings: %d, Info: %d\n", r.ErrorCount(), r.WarningCount(), r.InfoCount())
	fmt.Fprintf(w, "Duration: %s\n", o.Duration)

	if len(r.Issues) > 0 {
		fmt.Fprintln(w, "\nIssues:")
		for _, iss := range r.Issues {
			if quiet && iss.Severity == conformance.SeverityInformation {
				continue
			}
			location := ""
			if iss.Expression != "" {
				location = " @ " + iss.Expression
			} else if iss.Location != "" {
				location = " @ " + iss.Location
			}
			fmt.Fprintf(w, "  %s [%s] %s%s\n", severityLabel(iss.Severity), iss.Code, iss.Details, location)
		}
	}

	fmt.Fprintln(w)
}

func severityLabel(severity conformance.Severity) string {
	switch severity {
	case conformance.SeverityFatal:
		return "FATAL"
	case conformance.SeverityError:
		return "ERROR"
	case conformance.SeverityWarning:
		return "WARN "
	case conformance.SeverityInformation:
		return "INFO "
	default:
		return "     "
	}
}
