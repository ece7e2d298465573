package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeFunction_Defaults(t *testing.T) {
	spec, err := NormalizeFunction(Bag{"name": "hello", "runtime": "Python3.9"})
	if err != nil {
		t.Fatalf("NormalizeFunction() error = %v", err)
	}

	want := &FunctionSpec{
		Name:       "hello",
		Runtime:    "Python3.9",
		Package:    "default",
		Handler:    "index.handler",
		MemorySize: 128,
		Timeout:    30,
		CodeType:   CodeTypeInline,
	}
	if diff := cmp.Diff(want, spec); diff != "" {
		t.Errorf("NormalizeFunction() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeFunction_BothConventions(t *testing.T) {
	spec, err := NormalizeFunction(Bag{
		"function_name": "legacy",
		"memory_size":   512,
		"code_type":     "object-storage",
		"code_url":      "https://bucket/obj.zip",
		"agency_name":   "fgs-agency",
		"func_vpc":      map[string]any{"vpc_id": "vpc-1", "subnet_id": "subnet-1"},
		"code":          map[string]any{"code_uri": "./dist.zip"},
		"environment":   map[string]any{"STAGE": "prod", "RETRIES": 3},
		"concurreny":    10,
	})
	if err != nil {
		t.Fatalf("NormalizeFunction() error = %v", err)
	}

	if spec.Name != "legacy" {
		t.Errorf("Name = %q", spec.Name)
	}
	if spec.MemorySize != 512 {
		t.Errorf("MemorySize = %d", spec.MemorySize)
	}
	if spec.CodeType != CodeTypeOBS {
		t.Errorf("CodeType = %q, want obs", spec.CodeType)
	}
	if spec.CodeURI != "./dist.zip" {
		t.Errorf("CodeURI = %q", spec.CodeURI)
	}
	if spec.EffectiveVpcID() != "vpc-1" || spec.EffectiveSubnetID() != "subnet-1" {
		t.Errorf("vpc = %q/%q", spec.EffectiveVpcID(), spec.EffectiveSubnetID())
	}
	if spec.EffectiveXrole() != "fgs-agency" {
		t.Errorf("EffectiveXrole() = %q", spec.EffectiveXrole())
	}
	if spec.Environment["RETRIES"] != "3" {
		t.Errorf("Environment = %v", spec.Environment)
	}
	if spec.Concurrency != 10 {
		t.Errorf("Concurrency = %d", spec.Concurrency)
	}
}

func TestNormalizeTrigger(t *testing.T) {
	tr := NormalizeTrigger(Bag{
		"trigger_type_code": "timer",
		"event_data":        map[string]any{"schedule": "5m"},
	})
	if tr.TypeCode != "TIMER" {
		t.Errorf("TypeCode = %q", tr.TypeCode)
	}
	if tr.EffectiveStatus() != StatusActive {
		t.Errorf("EffectiveStatus() = %q", tr.EffectiveStatus())
	}
	if s, _ := tr.EventData.String("schedule"); s != "5m" {
		t.Errorf("schedule = %q", s)
	}

	disabled := NormalizeTrigger(Bag{"triggerTypeCode": "SMN", "status": " disabled "})
	if disabled.Status != StatusDisabled {
		t.Errorf("Status = %q, want %q", disabled.Status, StatusDisabled)
	}

	empty := NormalizeTrigger(Bag{"triggerTypeCode": "SMN"})
	if empty.EventData == nil {
		t.Error("EventData should default to an empty bag")
	}
}

func TestNormalizeProject_EnvFallback(t *testing.T) {
	p, err := NormalizeProject(Bag{}, Environment{ProjectID: "env-project"})
	if err != nil {
		t.Fatalf("NormalizeProject() error = %v", err)
	}
	if p.Region != DefaultRegion {
		t.Errorf("Region = %q, want %q", p.Region, DefaultRegion)
	}
	if p.ProjectID != "env-project" {
		t.Errorf("ProjectID = %q", p.ProjectID)
	}
	if p.Function != nil {
		t.Error("Function should be nil when undeclared")
	}
}
