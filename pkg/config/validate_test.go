package config

import (
	"errors"
	"testing"

	"github.com/openfroyo/froyo-fgs/pkg/engine"
)

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		wantErr   bool
		wantField string
	}{
		{
			name:  "valid function",
			value: &FunctionSpec{Name: "a", MemorySize: 256, Timeout: 30, CodeType: CodeTypeZip},
		},
		{
			name:      "memory too small",
			value:     &FunctionSpec{Name: "a", MemorySize: 64},
			wantErr:   true,
			wantField: "memorySize",
		},
		{
			name:      "unknown code type",
			value:     &FunctionSpec{Name: "a", CodeType: "tarball"},
			wantErr:   true,
			wantField: "codeType",
		},
		{
			name:      "bad vpc cidr",
			value:     &FunctionSpec{Name: "a", FuncVpc: &VPCConfig{VpcID: "v", Cidr: "not-a-cidr"}},
			wantErr:   true,
			wantField: "funcVpc.cidr",
		},
		{
			name:      "trigger without type",
			value:     &TriggerSpec{},
			wantErr:   true,
			wantField: "triggerTypeCode",
		},
		{
			name:      "trigger bad status",
			value:     &TriggerSpec{TypeCode: "TIMER", Status: "PAUSED"},
			wantErr:   true,
			wantField: "status",
		},
		{
			name:      "project missing project id",
			value:     &Project{Region: "cn-north-4"},
			wantErr:   true,
			wantField: "projectId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var ee *engine.EngineError
			if !errors.As(err, &ee) {
				t.Fatalf("expected *engine.EngineError, got %T", err)
			}
			if ee.Code != engine.ErrCodeConfiguration {
				t.Errorf("Code = %s", ee.Code)
			}
			if ee.Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", ee.Field(), tt.wantField)
			}
		})
	}
}

func TestValidateProject(t *testing.T) {
	valid := func() *Project {
		return &Project{
			Region:    "cn-north-4",
			ProjectID: "proj",
			Triggers: []TriggerSpec{
				{TypeCode: "TIMER", Status: StatusDisabled},
				{TypeCode: "SMN"},
			},
		}
	}

	tests := []struct {
		name      string
		mutate    func(p *Project)
		wantField string
	}{
		{name: "valid", mutate: func(p *Project) {}},
		{
			name:      "missing project id",
			mutate:    func(p *Project) { p.ProjectID = "" },
			wantField: "projectId",
		},
		{
			name:      "unknown status on first trigger",
			mutate:    func(p *Project) { p.Triggers[0].Status = "PAUSED" },
			wantField: "triggers[0].status",
		},
		{
			name:      "missing type on second trigger",
			mutate:    func(p *Project) { p.Triggers[1].TypeCode = "" },
			wantField: "triggers[1].triggerTypeCode",
		},
		{
			name:      "function block is not checked here",
			mutate:    func(p *Project) { p.Function = &FunctionSpec{Name: "a", MemorySize: 1} },
			wantField: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := ValidateProject(p)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateProject() error = %v", err)
				}
				return
			}
			if !engine.IsConfigurationError(err) {
				t.Fatalf("ValidateProject() error = %v, want configuration error", err)
			}
			var ee *engine.EngineError
			if !errors.As(err, &ee) {
				t.Fatalf("expected *engine.EngineError, got %T", err)
			}
			if ee.Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", ee.Field(), tt.wantField)
			}
		})
	}

	if err := ValidateProject(nil); !engine.IsConfigurationError(err) {
		t.Errorf("ValidateProject(nil) error = %v", err)
	}
}
