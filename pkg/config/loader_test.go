package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openfroyo/froyo-fgs/pkg/engine"
)

const yamlProject = `
region: ap-southeast-1
projectId: proj-1
function:
  name: hello
  runtime: Node.js14.18
  memorySize: 256
triggers:
  - triggerTypeCode: TIMER
    status: DISABLED
    eventData:
      name: tick
      schedule: 5m
  - trigger_type_code: apig
    event_data:
      group_id: g-1
`

const jsonProject = `{
  "region": "cn-north-4",
  "project_id": "proj-2",
  "function": {"function_name": "hello", "timeout": 60},
  "triggers": [{"triggerTypeCode": "SMN", "eventData": {"topicUrn": "urn:smn:x"}}]
}`

const cueProject = `
region:    "cn-east-3"
projectId: "proj-3"
function: {
	name:    "hello"
	runtime: "Go1.x"
	timeout: 15
}
triggers: [{
	triggerTypeCode: "LTS"
	eventData: {
		logGroupId: "lg"
		logTopicId: "lt"
	}
}]
`

func TestLoaderParse(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		content   string
		checkFunc func(t *testing.T, p *Project)
	}{
		{
			name:    "yaml",
			file:    "froyo.yaml",
			content: yamlProject,
			checkFunc: func(t *testing.T, p *Project) {
				if p.Region != "ap-southeast-1" || p.ProjectID != "proj-1" {
					t.Errorf("region/project = %q/%q", p.Region, p.ProjectID)
				}
				if p.Function.MemorySize != 256 {
					t.Errorf("MemorySize = %d", p.Function.MemorySize)
				}
				if len(p.Triggers) != 2 {
					t.Fatalf("triggers = %d", len(p.Triggers))
				}
				if p.Triggers[0].Status != StatusDisabled {
					t.Errorf("status = %q", p.Triggers[0].Status)
				}
				if p.Triggers[1].TypeCode != "APIG" {
					t.Errorf("type code = %q", p.Triggers[1].TypeCode)
				}
				if g, _ := p.Triggers[1].EventData.String("groupId"); g != "g-1" {
					t.Errorf("groupId = %q", g)
				}
			},
		},
		{
			name:    "json",
			file:    "froyo.json",
			content: jsonProject,
			checkFunc: func(t *testing.T, p *Project) {
				if p.ProjectID != "proj-2" {
					t.Errorf("ProjectID = %q", p.ProjectID)
				}
				if p.Function.Name != "hello" || p.Function.Timeout != 60 {
					t.Errorf("function = %+v", p.Function)
				}
			},
		},
		{
			name:    "cue",
			file:    "froyo.cue",
			content: cueProject,
			checkFunc: func(t *testing.T, p *Project) {
				if p.Region != "cn-east-3" {
					t.Errorf("Region = %q", p.Region)
				}
				if p.Function.Timeout != 15 {
					t.Errorf("Timeout = %d", p.Function.Timeout)
				}
				if id, _ := p.Triggers[0].EventData.String("logTopicId"); id != "lt" {
					t.Errorf("logTopicId = %q", id)
				}
			},
		},
	}

	loader := NewLoader(Environment{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := loader.Parse(tt.file, []byte(tt.content))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			tt.checkFunc(t, p)
		})
	}
}

func TestLoaderParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unsupported extension", "froyo.toml", "region = 'x'"},
		{"invalid yaml", "froyo.yaml", "function: [unclosed"},
		{"schema mismatch", "froyo.yaml", "function:\n  name: [not, a, string]\n"},
		{"top level list", "froyo.json", "[1, 2]"},
		{"invalid cue", "froyo.cue", "function: {"},
	}

	loader := NewLoader(Environment{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Parse(tt.file, []byte(tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !engine.IsConfigurationError(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "froyo.yml")
	if err := os.WriteFile(path, []byte(yamlProject), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := NewLoader(Environment{}).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Source != path {
		t.Errorf("Source = %q, want %q", p.Source, path)
	}

	if _, err := NewLoader(Environment{}).Load(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}
