package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/gofhir/conformance"
	"github.com/gofhir/conformance/engine"
	"github.com/gofhir/conformance/pkg/logger"
)

func init() {
	logger.Disable()
}

func emptyFactory() (*engine.Validator, error) {
	return engine.New(nil), nil
}

func writeResource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newValidateCmd(emptyFactory)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := map[string]bool{"validate": false, "serve": false, "version": false}
	for _, sub := range NewRootCmd().Commands() {
		name := strings.Fields(sub.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s command not registered with root", name)
		}
	}
}

func TestValidateCmd_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeResource(t, dir, "patient.json", `{"resourceType": "Patient", "id": "p1"}`)

	out, err := runCmd(t, "", path)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{"== " + path + " ==", "Status: VALID (success)", "Resource type: Patient"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateCmd_InvalidExitCode(t *testing.T) {
	dir := t.TempDir()
	writeResource(t, dir, "a.json", `{"resourceType": "Patient", "id": "p1"}`)
	writeResource(t, dir, "b.json", `{"resourceType": "Encounter"}`)

	out, err := runCmd(t, "", filepath.Join(dir, "*.json"))

	var invalid *InvalidResourcesError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v; want *InvalidResourcesError", err)
	}
	if invalid.Invalid != 1 || invalid.Total != 2 {
		t.Errorf("InvalidResourcesError = %+v; want 1 of 2", invalid)
	}
	if exitCode(err) != 2 {
		t.Errorf("exitCode() = %d; want 2", exitCode(err))
	}
	if !strings.Contains(out, "[missing-required-field]") {
		t.Errorf("output missing issue code:\n%s", out)
	}
}

func TestValidateCmd_JSONFromStdin(t *testing.T) {
	out, err := runCmd(t, `{"resourceType": "Observation", "status": "final", "code": {"text": "x"}}`, "-o", "json", "-")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var outputs []FileOutput
	if err := json.Unmarshal([]byte(out), &outputs); err != nil {
		t.Fatalf("Unmarshal(%q) error = %v", out, err)
	}
	if len(outputs) != 1 || outputs[0].Resource != "stdin" {
		t.Fatalf("outputs = %+v", outputs)
	}
	if outputs[0].Result.Status != conformance.StatusSuccess {
		t.Errorf("Status = %s; want success", outputs[0].Result.Status)
	}
}

func TestValidateCmd_BadInput(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		wantCode string
	}{
		{"invalid json", `{"resourceType":`, []string{"-"}, conformance.CodeInvalidJSON},
		{"missing file", "", []string{filepath.Join(t.TempDir(), "nope.json")}, conformance.CodeValidationException},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCmd(t, tt.stdin, append([]string{"-o", "json"}, tt.args...)...)
			if exitCode(err) != 2 {
				t.Fatalf("exitCode() = %d; want 2 (err = %v)", exitCode(err), err)
			}
			if strings.Contains(out, "Usage:") {
				t.Errorf("output contains usage text:\n%s", out)
			}
			var outputs []FileOutput
			if err := json.Unmarshal([]byte(out), &outputs); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got := outputs[0].Result.Codes(); len(got) != 1 || got[0] != tt.wantCode {
				t.Errorf("codes = %v; want [%s]", got, tt.wantCode)
			}
		})
	}
}

func TestValidateFlags_Options(t *testing.T) {
	f := &validateFlags{profileLayer: true, strict: true, profileURL: "http://x", noValueSets: true}
	got := f.options()
	want := conformance.ValidationOptions{
		ProfileURL:          "http://x",
		ValidateCodeSystems: true,
		ValidateValueSets:   false,
		UseProfileLayer:     true,
		StrictProfileLayer:  true,
	}
	if got != want {
		t.Errorf("options() = %+v; want %+v", got, want)
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(nil) != 0 {
		t.Error("exitCode(nil) != 0")
	}
	if exitCode(errors.New("boom")) != 1 {
		t.Error("exitCode(other) != 1")
	}
}
