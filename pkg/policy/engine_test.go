package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/rs/zerolog"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(zerolog.New(nil).Level(zerolog.Disabled))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func validProject() *config.Project {
	return &config.Project{
		Region:    "cn-north-4",
		ProjectID: "proj",
		Function: &config.FunctionSpec{
			Name:     "hello",
			Package:  "default",
			Runtime:  "Python3.9",
			Handler:  "index.handler",
			CodeType: "inline",
		},
		Triggers: []config.TriggerSpec{
			{TypeCode: "TIMER", Status: "ACTIVE", EventData: config.Bag{"schedule": "3m"}},
		},
	}
}

func policiesOf(violations []Violation) map[string]Severity {
	out := make(map[string]Severity, len(violations))
	for _, v := range violations {
		out[v.Policy] = v.Severity
	}
	return out
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	want := []string{
		"function-naming",
		"remove-protection",
		"runtime-deprecation",
		"timer-schedule",
		"trigger-support",
	}
	got := eng.ListPolicies()
	if len(got) != len(want) {
		t.Fatalf("Expected %d built-in policies, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Errorf("policy %d: expected %s, got %s", i, want[i], got[i].Name)
		}
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(p *config.Project)
		allowed    bool
		violations map[string]Severity
	}{
		{
			name:       "valid project",
			mutate:     func(*config.Project) {},
			allowed:    true,
			violations: map[string]Severity{},
		},
		{
			name:       "name starting with a digit",
			mutate:     func(p *config.Project) { p.Function.Name = "1hello" },
			allowed:    false,
			violations: map[string]Severity{"function-naming": SeverityError},
		},
		{
			name:       "deprecated runtime",
			mutate:     func(p *config.Project) { p.Function.Runtime = "Python2.7" },
			allowed:    true,
			violations: map[string]Severity{"runtime-deprecation": SeverityWarning},
		},
		{
			name: "unsupported trigger type",
			mutate: func(p *config.Project) {
				p.Triggers = append(p.Triggers, config.TriggerSpec{TypeCode: "DDS", EventData: config.Bag{"db_user": "u"}})
			},
			allowed:    true,
			violations: map[string]Severity{"trigger-support": SeverityWarning},
		},
		{
			name: "malformed rate schedule",
			mutate: func(p *config.Project) {
				p.Triggers[0].EventData = config.Bag{"schedule": "soon"}
			},
			allowed:    false,
			violations: map[string]Severity{"timer-schedule": SeverityError},
		},
		{
			name: "cron schedule is not checked",
			mutate: func(p *config.Project) {
				p.Triggers[0].EventData = config.Bag{"schedule": "0 0 * * *", "scheduleType": "Cron"}
			},
			allowed:    true,
			violations: map[string]Severity{},
		},
		{
			name: "snake case schedule type",
			mutate: func(p *config.Project) {
				p.Triggers[0].EventData = config.Bag{"schedule": "0 0 * * *", "schedule_type": "Cron"}
			},
			allowed:    true,
			violations: map[string]Severity{},
		},
		{
			name:       "trigger only project",
			mutate:     func(p *config.Project) { p.Function = nil },
			allowed:    true,
			violations: map[string]Severity{},
		},
	}

	eng := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProject()
			tt.mutate(p)

			result, err := eng.Evaluate(context.Background(), p, OperationDeploy, false)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if result.Allowed != tt.allowed {
				t.Errorf("Expected allowed=%v, got %v (violations: %+v)", tt.allowed, result.Allowed, result.Violations)
			}
			got := policiesOf(result.Violations)
			if len(got) != len(tt.violations) {
				t.Fatalf("Expected violations %v, got %+v", tt.violations, result.Violations)
			}
			for name, sev := range tt.violations {
				if got[name] != sev {
					t.Errorf("policy %s: expected severity %s, got %s", name, sev, got[name])
				}
			}
			if len(result.Warnings) != 0 {
				t.Errorf("Unexpected warnings: %v", result.Warnings)
			}
			if len(result.EvaluatedPolicies) != 5 {
				t.Errorf("Expected 5 evaluated policies, got %d", len(result.EvaluatedPolicies))
			}
		})
	}
}

func TestEvaluate_NilProject(t *testing.T) {
	eng := newTestEngine(t)
	if _, err := eng.Evaluate(context.Background(), nil, OperationDeploy, false); err == nil {
		t.Fatal("Expected error for nil project")
	}
}

func TestEvaluate_RemoveProtection(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	result, err := eng.Evaluate(ctx, validProject(), OperationRemove, false)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Allowed {
		t.Fatal("Remove outside production should be allowed")
	}

	eng.SetEnvironment("production")

	result, err = eng.Evaluate(ctx, validProject(), OperationRemove, true)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Allowed {
		t.Fatal("Dry-run remove in production should be allowed")
	}

	result, err = eng.Evaluate(ctx, validProject(), OperationRemove, false)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("Remove in production should be blocked")
	}
	if len(result.Violations) != 1 || result.Violations[0].Severity != SeverityCritical {
		t.Fatalf("Expected one critical violation, got %+v", result.Violations)
	}
	if result.Violations[0].Resource != "hello" {
		t.Errorf("Expected resource hello, got %q", result.Violations[0].Resource)
	}
}

func TestResultErr(t *testing.T) {
	allowed := &Result{Allowed: true, Violations: []Violation{{Policy: "p", Severity: SeverityWarning}}}
	if err := allowed.Err(); err != nil {
		t.Fatalf("Expected nil error for allowed result, got %v", err)
	}

	blocked := &Result{
		Allowed: false,
		Violations: []Violation{
			{Policy: "warn", Message: "just a warning", Severity: SeverityWarning},
			{Policy: "function-naming", Message: "bad name", Severity: SeverityError, Resource: "1fn"},
		},
	}
	err := blocked.Err()
	if !engine.IsPolicyViolation(err) {
		t.Fatalf("Expected policy violation error, got %v", err)
	}
	if engine.IsRetryable(err) {
		t.Error("Policy violations should not be retryable")
	}
	var ee *engine.EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("Expected *engine.EngineError, got %T", err)
	}
	if ee.Resource != "1fn" {
		t.Errorf("Expected resource 1fn, got %q", ee.Resource)
	}
	if ee.Message != "policy check failed: [function-naming] bad name" {
		t.Errorf("Unexpected message %q", ee.Message)
	}
}

func TestEnableDisablePolicy(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	p := validProject()
	p.Function.Name = "1hello"

	if err := eng.DisablePolicy("function-naming"); err != nil {
		t.Fatalf("DisablePolicy failed: %v", err)
	}
	result, err := eng.Evaluate(ctx, p, OperationDeploy, false)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Allowed {
		t.Errorf("Disabled policy should not block: %+v", result.Violations)
	}
	if len(result.EvaluatedPolicies) != 4 {
		t.Errorf("Expected 4 evaluated policies, got %d", len(result.EvaluatedPolicies))
	}

	if err := eng.EnablePolicy("function-naming"); err != nil {
		t.Fatalf("EnablePolicy failed: %v", err)
	}
	result, err = eng.Evaluate(ctx, p, OperationDeploy, false)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Allowed {
		t.Error("Re-enabled policy should block")
	}

	if err := eng.EnablePolicy("non-existent"); err == nil {
		t.Error("Expected error for unknown policy")
	}
	if _, err := eng.GetPolicy("non-existent"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestReplacePolicies(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	custom := Policy{
		Name:     "memory-cap",
		Severity: SeverityError,
		Enabled:  true,
		Rego: `package custom.memory

import rego.v1

deny contains msg if {
	input.project.function.memorySize > 2048
	msg := "memory too large"
}`,
	}

	if err := eng.ReplacePolicies(ctx, []Policy{custom}); err != nil {
		t.Fatalf("ReplacePolicies failed: %v", err)
	}
	if n := len(eng.ListPolicies()); n != 6 {
		t.Fatalf("Expected 6 policies, got %d", n)
	}

	p := validProject()
	p.Function.MemorySize = 4096
	result, err := eng.Evaluate(ctx, p, OperationDeploy, false)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("Expected custom policy to block")
	}
	if result.Violations[0].Policy != "memory-cap" || result.Violations[0].Message != "memory too large" {
		t.Errorf("Unexpected violation %+v", result.Violations[0])
	}

	broken := Policy{Name: "broken", Rego: "package broken\n\ndeny contains"}
	if err := eng.ReplacePolicies(ctx, []Policy{broken}); err == nil {
		t.Fatal("Expected compile error")
	}
	if _, err := eng.GetPolicy("memory-cap"); err != nil {
		t.Error("Failed replace should keep the previous policies")
	}

	if err := eng.ReplacePolicies(ctx, nil); err != nil {
		t.Fatalf("ReplacePolicies failed: %v", err)
	}
	if n := len(eng.ListPolicies()); n != 5 {
		t.Errorf("Expected only built-ins after replace, got %d", n)
	}
}
