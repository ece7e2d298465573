package policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testRego = `package test.policy

# Rejects functions named invalid

import rego.v1

deny contains msg if {
	input.project.function.name == "invalid"
	msg := "Invalid function name"
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
}

func newTestLoader() *Loader {
	return NewLoader(zerolog.New(nil).Level(zerolog.Disabled))
}

func loadOne(t *testing.T, l *Loader, path string) (*Policy, error) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat %s: %v", path, err)
	}
	return l.loadFile(path, info)
}

func TestLoadFile_Rego(t *testing.T) {
	policyFile := filepath.Join(t.TempDir(), "test-policy.rego")
	writeFile(t, policyFile, testRego)

	policy, err := loadOne(t, newTestLoader(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	if policy.Name != "test-policy" {
		t.Errorf("Expected name 'test-policy', got '%s'", policy.Name)
	}
	if policy.Description != "Rejects functions named invalid" {
		t.Errorf("Unexpected description %q", policy.Description)
	}
	if policy.Severity != SeverityWarning {
		t.Errorf("Expected default severity warning, got %s", policy.Severity)
	}
	if !policy.Enabled {
		t.Error("Policy should be enabled by default")
	}
	if policy.Source != policyFile {
		t.Errorf("Expected source %s, got %s", policyFile, policy.Source)
	}
}

func TestParseRegoHeader(t *testing.T) {
	module := `package froyo.custom

# Functions must declare a description.
# severity: Error
# tags: docs, naming
# enabled: false
# Note: checked on deploy only

import rego.v1

# not part of the header
deny contains "x" if { false }
`
	def := parseRegoHeader(module)

	if def.Description != "Functions must declare a description. Note: checked on deploy only" {
		t.Errorf("Unexpected description %q", def.Description)
	}
	if def.Severity != SeverityError {
		t.Errorf("Expected severity error, got %s", def.Severity)
	}
	if len(def.Tags) != 2 || def.Tags[0] != "docs" || def.Tags[1] != "naming" {
		t.Errorf("Unexpected tags %v", def.Tags)
	}
	if def.Enabled == nil || *def.Enabled {
		t.Errorf("Expected enabled=false, got %v", def.Enabled)
	}
	if def.Rego != module {
		t.Error("Rego should be the whole module")
	}
}

func TestParseRegoHeader_ImportPlacement(t *testing.T) {
	tests := []struct {
		name   string
		module string
		want   string
	}{
		{
			name: "import ends the header",
			module: `package a
# Keep memory bounded
import rego.v1
# helper below
deny contains "x" if { false }`,
			want: "Keep memory bounded",
		},
		{
			name: "import before the header",
			module: `package a
import rego.v1
import data.lib

# Require a handler
deny contains "x" if { false }`,
			want: "Require a handler",
		},
		{
			name: "no header",
			module: `package a
import rego.v1
deny contains "x" if { false }
# trailing`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRegoHeader(tt.module).Description; got != tt.want {
				t.Errorf("Description = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadFile_Definitions(t *testing.T) {
	const rego = `package c\ndeny contains \"x\" if { false }`

	tests := []struct {
		name        string
		file        string
		body        string
		wantName    string
		wantEnabled bool
		wantSev     Severity
		wantErr     bool
	}{
		{
			name:        "json full definition",
			file:        "policy.json",
			body:        `{"name":"custom","rego":"` + rego + `","severity":"error","enabled":false}`,
			wantName:    "custom",
			wantEnabled: false,
			wantSev:     SeverityError,
		},
		{
			name:        "json defaults",
			file:        "policy.json",
			body:        `{"rego":"` + rego + `"}`,
			wantName:    "policy",
			wantEnabled: true,
			wantSev:     SeverityWarning,
		},
		{
			name: "yaml definition",
			file: "memory.yaml",
			body: `severity: critical
tags: [limits]
rego: |
  package c
  deny contains "x" if { false }
`,
			wantName:    "memory",
			wantEnabled: true,
			wantSev:     SeverityCritical,
		},
		{
			name:    "unknown severity",
			file:    "policy.yml",
			body:    "severity: fatal\nrego: package c\n",
			wantErr: true,
		},
		{
			name:    "missing rego",
			file:    "policy.json",
			body:    `{"name":"empty"}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			file:    "policy.json",
			body:    `{invalid`,
			wantErr: true,
		},
		{
			name:    "unsupported type",
			file:    "policy.txt",
			body:    "package x",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			writeFile(t, path, tt.body)

			policy, err := loadOne(t, newTestLoader(), path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to load policy: %v", err)
			}
			if policy.Name != tt.wantName {
				t.Errorf("Expected name %s, got %s", tt.wantName, policy.Name)
			}
			if policy.Enabled != tt.wantEnabled {
				t.Errorf("Expected enabled=%v, got %v", tt.wantEnabled, policy.Enabled)
			}
			if policy.Severity != tt.wantSev {
				t.Errorf("Expected severity %s, got %s", tt.wantSev, policy.Severity)
			}
		})
	}
}

func TestLoadFromPaths_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.rego"), testRego)
	writeFile(t, filepath.Join(dir, "nested", "deeper", "b.rego"), testRego)
	writeFile(t, filepath.Join(dir, "README.md"), "not a policy")
	writeFile(t, filepath.Join(dir, "broken.json"), "{")

	policies, err := newTestLoader().LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Failed to load directory: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("Expected 2 policies, got %d", len(policies))
	}
	if policies[0].Name != "a" || policies[1].Name != "b" {
		t.Errorf("Expected a and b in walk order, got %s and %s", policies[0].Name, policies[1].Name)
	}
}

func TestLoadFromPaths_Errors(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.json")
	writeFile(t, broken, "{")

	for _, path := range []string{"/non/existent/path", broken} {
		if _, err := newTestLoader().LoadFromPaths(context.Background(), []string{path}); err == nil {
			t.Errorf("Expected error for %s", path)
		}
	}
}

func TestLoadFile_Cache(t *testing.T) {
	loader := newTestLoader()
	path := filepath.Join(t.TempDir(), "cached.rego")
	writeFile(t, path, testRego)

	first, err := loadOne(t, loader, path)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if len(loader.cache) != 1 {
		t.Fatalf("Expected 1 cached policy, got %d", len(loader.cache))
	}

	writeFile(t, path, strings.Replace(testRego, "Rejects functions named invalid", "Changed", 1))
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Failed to touch policy: %v", err)
	}

	second, err := loadOne(t, loader, path)
	if err != nil {
		t.Fatalf("Failed to reload policy: %v", err)
	}
	if first.Description == second.Description {
		t.Errorf("Expected a changed file to be read again, got %q twice", second.Description)
	}
}

func TestLoadBundle(t *testing.T) {
	tests := []struct {
		file string
		body string
	}{
		{
			file: "bundle.json",
			body: `{"name":"fgs-bundle","version":"1.0.0","policies":[
				{"name":"p1","rego":"package p1\ndeny contains \"x\" if { false }"},
				{"rego":"package p2\ndeny contains \"x\" if { false }","severity":"error","enabled":false}]}`,
		},
		{
			file: "bundle.yaml",
			body: `name: fgs-bundle
version: 1.0.0
policies:
  - name: p1
    rego: package p1
  - rego: package p2
    severity: error
    enabled: false
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			writeFile(t, path, tt.body)

			loaded, err := newTestLoader().LoadBundle(context.Background(), path)
			if err != nil {
				t.Fatalf("Failed to load bundle: %v", err)
			}
			if loaded.Name != "fgs-bundle" || loaded.Version != "1.0.0" {
				t.Errorf("Unexpected bundle header %s %s", loaded.Name, loaded.Version)
			}
			if len(loaded.Policies) != 2 {
				t.Fatalf("Expected 2 policies, got %d", len(loaded.Policies))
			}
			p1, p2 := loaded.Policies[0], loaded.Policies[1]
			if p1.Severity != SeverityWarning || !p1.Enabled {
				t.Errorf("Expected defaults on p1, got %+v", p1)
			}
			if p2.Name != "fgs-bundle-1" || p2.Severity != SeverityError || p2.Enabled {
				t.Errorf("Unexpected p2 %+v", p2)
			}
			if p2.Source != path {
				t.Errorf("Expected source %s, got %s", path, p2.Source)
			}
		})
	}
}

func TestEngineLoadPolicies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "invalid-name.rego"), testRego)

	eng := newTestEngine(t)
	if err := eng.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies failed: %v", err)
	}

	p := validProject()
	p.Function.Name = "invalid"
	result, err := eng.Evaluate(context.Background(), p, OperationDeploy, false)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	got := policiesOf(result.Violations)
	if got["invalid-name"] != SeverityWarning {
		t.Errorf("Expected warning from loaded policy, got %+v", result.Violations)
	}
	if !result.Allowed {
		t.Error("Warnings should not block")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "first.rego"), testRego)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader := newTestLoader()
	reloaded := make(chan []Policy, 4)
	if err := loader.Watch(ctx, []string{dir}, func(p []Policy) error {
		reloaded <- p
		return nil
	}); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writeFile(t, filepath.Join(dir, "second.rego"), testRego)

	select {
	case policies := <-reloaded:
		if len(policies) != 2 {
			t.Errorf("Expected 2 policies after reload, got %d", len(policies))
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}
}

func TestEngineWatchPolicies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "placeholder.rego"), "package froyo.placeholder\n\nimport rego.v1\n\ndeny contains \"never\" if { false }\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := newTestEngine(t)
	if err := eng.WatchPolicies(ctx, []string{dir}); err != nil {
		t.Fatalf("WatchPolicies failed: %v", err)
	}

	writeFile(t, filepath.Join(dir, "invalid-name.rego"), testRego)

	deadline := time.After(10 * time.Second)
	for {
		if _, err := eng.GetPolicy("invalid-name"); err == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for the engine to pick up the new policy")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
