package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/openfroyo/froyo-fgs/pkg/fgs"
	"github.com/openfroyo/froyo-fgs/pkg/fgs/fgstest"
	"github.com/openfroyo/froyo-fgs/pkg/policy"
	"github.com/openfroyo/froyo-fgs/pkg/stores"
	"github.com/openfroyo/froyo-fgs/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

type fakeUploader struct {
	mu    sync.Mutex
	calls [][2]string
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, codeURL, localPath string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, [2]string{codeURL, localPath})
	return u.err
}

type fakeHistory struct {
	mu       sync.Mutex
	runs     []*engine.Run
	bindings map[string]string
	audit    []string
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{bindings: make(map[string]string)}
}

func bindingKey(urn, kind string, ordinal int) string {
	return fmt.Sprintf("%s|%s|%d", urn, kind, ordinal)
}

func (h *fakeHistory) SaveRun(_ context.Context, run *engine.Run) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, run)
	return nil
}

func (h *fakeHistory) UpsertTriggerBinding(_ context.Context, b *stores.TriggerBinding) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bindings[bindingKey(b.FunctionURN, b.TriggerType, b.Ordinal)] = b.TriggerID
	return nil
}

func (h *fakeHistory) DeleteTriggerBinding(_ context.Context, urn, kind string, ordinal int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.bindings, bindingKey(urn, kind, ordinal))
	return nil
}

func (h *fakeHistory) CreateAuditEntry(_ context.Context, e *stores.AuditEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.audit = append(h.audit, e.Action)
	return nil
}

func testProject() *config.Project {
	return &config.Project{
		Region:    "cn-north-4",
		ProjectID: "proj",
		Function: &config.FunctionSpec{
			Name:       "hello",
			Package:    "default",
			Runtime:    "Python3.9",
			Handler:    "index.handler",
			MemorySize: 128,
			Timeout:    30,
			CodeType:   "inline",
		},
		Triggers: []config.TriggerSpec{
			{TypeCode: "TIMER", EventData: config.Bag{"name": "tick", "schedule": "5m"}},
			{TypeCode: "SMN", EventData: config.Bag{"topic_urn": "urn:smn:cn-north-4:proj:alerts"}},
		},
	}
}

func newTestDeployer(opts Options) (*Deployer, *fgstest.Platform) {
	platform := fgstest.NewPlatform("cn-north-4", "proj")
	return NewDeployer(platform, zerolog.New(nil).Level(zerolog.Disabled), opts), platform
}

func outcomes(run *engine.Run) []string {
	out := make([]string, 0, len(run.Results))
	for _, r := range run.Results {
		out = append(out, string(r.Kind)+":"+r.TriggerType+":"+string(r.Outcome))
	}
	return out
}

func TestDeploy_CreateThenUnchanged(t *testing.T) {
	history := newFakeHistory()
	d, platform := newTestDeployer(Options{History: history})
	ctx := context.Background()
	urn := platform.URN("default", "hello")

	first, err := d.Deploy(ctx, testProject(), engine.ScopeAll)
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	want := []string{"function::created", "trigger:TIMER:created", "trigger:SMN:created"}
	if diff := cmp.Diff(want, outcomes(first)); diff != "" {
		t.Errorf("first outcomes (-want +got):\n%s", diff)
	}
	if first.Status != engine.RunStatusSucceeded || first.FunctionURN != urn {
		t.Errorf("run = %+v", first)
	}
	if first.Summary.ByOutcome[engine.OutcomeCreated] != 3 {
		t.Errorf("summary = %+v", first.Summary)
	}

	second, err := d.Deploy(ctx, testProject(), engine.ScopeAll)
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	want = []string{"function::updated", "trigger:TIMER:unchanged", "trigger:SMN:unchanged"}
	if diff := cmp.Diff(want, outcomes(second)); diff != "" {
		t.Errorf("second outcomes (-want +got):\n%s", diff)
	}
	if got := platform.Calls(fgs.OpCreateTrigger); got != 2 {
		t.Errorf("create-trigger calls = %d, want 2", got)
	}
	if got := len(platform.Triggers(urn)); got != 2 {
		t.Errorf("remote triggers = %d, want 2", got)
	}

	if len(history.runs) != 2 || first.ID == second.ID {
		t.Errorf("history runs = %d", len(history.runs))
	}
	if len(history.bindings) != 2 {
		t.Errorf("bindings = %v", history.bindings)
	}
	if diff := cmp.Diff([]string{"run.succeeded", "run.succeeded"}, history.audit); diff != "" {
		t.Errorf("audit (-want +got):\n%s", diff)
	}
}

func TestPlan_NoMutations(t *testing.T) {
	history := newFakeHistory()
	d, platform := newTestDeployer(Options{History: history})

	run, err := d.Plan(context.Background(), testProject(), engine.ScopeAll)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	want := []string{"function::planned-create", "trigger:TIMER:planned-create", "trigger:SMN:planned-create"}
	if diff := cmp.Diff(want, outcomes(run)); diff != "" {
		t.Errorf("outcomes (-want +got):\n%s", diff)
	}
	if run.Command != CommandPlan {
		t.Errorf("command = %s, want plan", run.Command)
	}
	if platform.MutationCalls() != 0 {
		t.Errorf("mutation calls = %d, want 0", platform.MutationCalls())
	}
	if len(history.bindings) != 0 {
		t.Errorf("plan should not bind triggers: %v", history.bindings)
	}
}

func TestDeploy_InvalidConfigMakesNoCalls(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *config.Project)
		field  string
	}{
		{
			name:   "missing function",
			mutate: func(p *config.Project) { p.Function = nil },
			field:  "name",
		},
		{
			name: "vpc without xrole",
			mutate: func(p *config.Project) {
				p.Function.FuncVpc = &config.VPCConfig{VpcID: "vpc-1", SubnetID: "subnet-1"}
			},
			field: "xrole",
		},
		{
			name:   "obs without url",
			mutate: func(p *config.Project) { p.Function.CodeType = config.CodeTypeOBS },
			field:  "codeUrl",
		},
		{
			name:   "unknown trigger status",
			mutate: func(p *config.Project) { p.Triggers[0].Status = "PAUSED" },
			field:  "triggers[0].status",
		},
		{
			name:   "trigger without type code",
			mutate: func(p *config.Project) { p.Triggers[1].TypeCode = "" },
			field:  "triggers[1].triggerTypeCode",
		},
		{
			name:   "missing project id",
			mutate: func(p *config.Project) { p.ProjectID = "" },
			field:  "projectId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := newFakeHistory()
			d, platform := newTestDeployer(Options{History: history})
			p := testProject()
			tt.mutate(p)

			run, err := d.Deploy(context.Background(), p, engine.ScopeAll)
			if !engine.IsConfigurationError(err) {
				t.Fatalf("Deploy() error = %v, want configuration error", err)
			}
			var engErr *engine.EngineError
			if !errors.As(err, &engErr) {
				t.Fatalf("error type = %T", err)
			}
			if engErr.Field() != tt.field {
				t.Errorf("field = %q, want %q", engErr.Field(), tt.field)
			}
			if platform.TotalCalls() != 0 {
				t.Errorf("remote calls = %d, want 0", platform.TotalCalls())
			}
			if platform.MutationCalls() != 0 {
				t.Errorf("mutations = %d, want 0", platform.MutationCalls())
			}
			if run.Status != engine.RunStatusFailed || run.Error == "" {
				t.Errorf("run = %+v", run)
			}
			if len(history.runs) != 1 {
				t.Errorf("failed run should be saved")
			}
		})
	}
}

func TestDeploy_PolicyViolationBlocks(t *testing.T) {
	eng, err := policy.NewEngine(zerolog.New(nil).Level(zerolog.Disabled))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	d, platform := newTestDeployer(Options{Policy: eng})

	p := testProject()
	p.Triggers[0].EventData = config.Bag{"name": "tick", "schedule": "whenever"}

	_, err = d.Deploy(context.Background(), p, engine.ScopeAll)
	if !engine.IsPolicyViolation(err) {
		t.Fatalf("Deploy() error = %v, want policy violation", err)
	}
	if platform.TotalCalls() != 0 {
		t.Errorf("remote calls = %d, want 0", platform.TotalCalls())
	}

	// Warnings do not block.
	p = testProject()
	p.Function.Runtime = "Python2.7"
	if _, err := d.Deploy(context.Background(), p, engine.ScopeAll); err != nil {
		t.Fatalf("Deploy() with warning error = %v", err)
	}
}

func TestDeploy_TriggerScope(t *testing.T) {
	d, platform := newTestDeployer(Options{})
	urn := platform.URN("default", "hello")
	platform.PutFunction(fgs.FunctionRecord{FuncURN: urn, FuncName: "hello", Package: "default"})

	run, err := d.Deploy(context.Background(), testProject(), engine.ScopeTrigger)
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	want := []string{"trigger:TIMER:created", "trigger:SMN:created"}
	if diff := cmp.Diff(want, outcomes(run)); diff != "" {
		t.Errorf("outcomes (-want +got):\n%s", diff)
	}
	for _, op := range []string{fgs.OpGetFunction, fgs.OpCreateFunction, fgs.OpUpdateFunction} {
		if got := platform.Calls(op); got != 0 {
			t.Errorf("%s calls = %d, want 0", op, got)
		}
	}
}

func TestDeploy_FunctionScope(t *testing.T) {
	d, platform := newTestDeployer(Options{})

	run, err := d.Deploy(context.Background(), testProject(), engine.ScopeFunction)
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if diff := cmp.Diff([]string{"function::created"}, outcomes(run)); diff != "" {
		t.Errorf("outcomes (-want +got):\n%s", diff)
	}
	if got := platform.Calls(fgs.OpListTriggers); got != 0 {
		t.Errorf("list-triggers calls = %d, want 0", got)
	}
}

func TestDeploy_InvalidScope(t *testing.T) {
	d, platform := newTestDeployer(Options{})
	_, err := d.Deploy(context.Background(), testProject(), engine.Scope("everything"))
	if !engine.IsConfigurationError(err) {
		t.Fatalf("Deploy() error = %v, want configuration error", err)
	}
	if platform.TotalCalls() != 0 {
		t.Errorf("remote calls = %d, want 0", platform.TotalCalls())
	}
}

func TestDeploy_ParallelKeepsDeclarationOrder(t *testing.T) {
	d, platform := newTestDeployer(Options{Parallelism: 4})
	p := testProject()
	p.Triggers = []config.TriggerSpec{
		{TypeCode: "TIMER", EventData: config.Bag{"name": "a", "schedule": "5m"}},
		{TypeCode: "SMN", EventData: config.Bag{"topic_urn": "urn:smn:a"}},
		{TypeCode: "TIMER", EventData: config.Bag{"name": "b", "schedule": "10m"}},
		{TypeCode: "LTS", EventData: config.Bag{"log_group_id": "g", "log_topic_id": "t"}},
		{TypeCode: "DDS", EventData: config.Bag{"db_user": "u"}},
	}

	run, err := d.Deploy(context.Background(), p, engine.ScopeAll)
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	want := []string{
		"function::created",
		"trigger:TIMER:created",
		"trigger:SMN:created",
		"trigger:TIMER:created",
		"trigger:LTS:created",
		"trigger:DDS:skipped",
	}
	if diff := cmp.Diff(want, outcomes(run)); diff != "" {
		t.Errorf("outcomes (-want +got):\n%s", diff)
	}
	if got := platform.Calls(fgs.OpCreateTrigger); got != 4 {
		t.Errorf("create-trigger calls = %d, want 4", got)
	}
}

func TestGroupByKind(t *testing.T) {
	specs := []config.TriggerSpec{
		{TypeCode: "TIMER"}, {TypeCode: "SMN"}, {TypeCode: "timer"}, {TypeCode: "LTS"},
	}
	groups := groupByKind(specs)
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][1].index != 2 || groups[0][1].ordinal != 1 {
		t.Errorf("timer group = %+v", groups[0])
	}
	if groups[1][0].index != 1 || groups[2][0].index != 3 {
		t.Errorf("group order = %+v", groups)
	}
}

func TestDeploy_TriggerFailureStopsRun(t *testing.T) {
	for _, parallelism := range []int{1, 4} {
		d, platform := newTestDeployer(Options{Parallelism: parallelism})
		platform.Fail(fgs.OpCreateTrigger, fgstest.ServerError(fgs.OpCreateTrigger))

		run, err := d.Deploy(context.Background(), testProject(), engine.ScopeAll)
		if !engine.IsRemoteOperationError(err) {
			t.Fatalf("parallelism %d: Deploy() error = %v, want remote operation error", parallelism, err)
		}
		if !engine.IsTransient(err) {
			t.Errorf("parallelism %d: 5xx should classify as transient", parallelism)
		}
		var apiErr *fgs.APIError
		if !errors.As(err, &apiErr) {
			t.Errorf("parallelism %d: transport error not preserved", parallelism)
		}
		if run.Status != engine.RunStatusFailed {
			t.Errorf("parallelism %d: status = %s", parallelism, run.Status)
		}
		if len(run.Results) == 0 || run.Results[0].Outcome != engine.OutcomeCreated {
			t.Errorf("parallelism %d: function result should be kept: %v", parallelism, outcomes(run))
		}
	}
}

func TestRemove(t *testing.T) {
	history := newFakeHistory()
	d, platform := newTestDeployer(Options{History: history})
	ctx := context.Background()
	urn := platform.URN("default", "hello")

	if _, err := d.Deploy(ctx, testProject(), engine.ScopeAll); err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}

	plan, err := d.PlanRemove(ctx, testProject(), engine.ScopeAll)
	if err != nil {
		t.Fatalf("PlanRemove() error = %v", err)
	}
	want := []string{"trigger:TIMER:planned-delete", "trigger:SMN:planned-delete", "function::planned-delete"}
	if diff := cmp.Diff(want, outcomes(plan)); diff != "" {
		t.Errorf("plan outcomes (-want +got):\n%s", diff)
	}
	if got := platform.Calls(fgs.OpDeleteTrigger) + platform.Calls(fgs.OpDeleteFunction); got != 0 {
		t.Errorf("delete calls during plan = %d", got)
	}

	run, err := d.Remove(ctx, testProject(), engine.ScopeAll)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	want = []string{"trigger:TIMER:deleted", "trigger:SMN:deleted", "function::deleted"}
	if diff := cmp.Diff(want, outcomes(run)); diff != "" {
		t.Errorf("remove outcomes (-want +got):\n%s", diff)
	}
	if _, ok := platform.Function(urn); ok {
		t.Error("function still exists")
	}
	if len(history.bindings) != 0 {
		t.Errorf("bindings after remove = %v", history.bindings)
	}

	again, err := d.Remove(ctx, testProject(), engine.ScopeAll)
	if err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
	want = []string{"trigger:TIMER:not-found", "trigger:SMN:not-found", "function::not-found"}
	if diff := cmp.Diff(want, outcomes(again)); diff != "" {
		t.Errorf("second remove outcomes (-want +got):\n%s", diff)
	}
}

func TestDeploy_UploadsOBSCode(t *testing.T) {
	codePath := filepath.Join(t.TempDir(), "code.zip")
	if err := os.WriteFile(codePath, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	obsProject := func() *config.Project {
		p := testProject()
		p.Function.CodeType = config.CodeTypeOBS
		p.Function.CodeURL = "https://bucket.obs.cn-north-4.myhuaweicloud.com/code.zip"
		p.Function.CodeURI = codePath
		return p
	}

	uploader := &fakeUploader{}
	d, platform := newTestDeployer(Options{Uploader: uploader})

	if _, err := d.Plan(context.Background(), obsProject(), engine.ScopeAll); err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(uploader.calls) != 0 {
		t.Fatalf("plan uploaded code: %v", uploader.calls)
	}

	if _, err := d.Deploy(context.Background(), obsProject(), engine.ScopeAll); err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	want := [][2]string{{"https://bucket.obs.cn-north-4.myhuaweicloud.com/code.zip", codePath}}
	if diff := cmp.Diff(want, uploader.calls); diff != "" {
		t.Errorf("uploads (-want +got):\n%s", diff)
	}

	failing := &fakeUploader{err: errors.New("access denied")}
	d, platform = newTestDeployer(Options{Uploader: failing})
	_, err := d.Deploy(context.Background(), obsProject(), engine.ScopeAll)
	if !engine.IsRemoteOperationError(err) {
		t.Fatalf("Deploy() error = %v, want remote operation error", err)
	}
	if platform.TotalCalls() != 0 {
		t.Errorf("remote calls after failed upload = %d, want 0", platform.TotalCalls())
	}
}

func TestDeploy_CancelledContext(t *testing.T) {
	d, _ := newTestDeployer(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := d.Deploy(ctx, testProject(), engine.ScopeAll)
	if err == nil {
		t.Fatal("Deploy() with cancelled context should fail")
	}
	if run.Status != engine.RunStatusCancelled {
		t.Errorf("status = %s, want cancelled", run.Status)
	}
}

func TestDeploy_Metrics(t *testing.T) {
	metrics, err := telemetry.NewMetrics(telemetry.DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	d, _ := newTestDeployer(Options{Metrics: metrics})

	if _, err := d.Deploy(context.Background(), testProject(), engine.ScopeAll); err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}

	if got := testutil.CollectAndCount(metrics.Registry(), "froyo_fgs_reconciliations_total"); got != 3 {
		t.Errorf("reconciliation series = %d, want 3", got)
	}
	if got := testutil.CollectAndCount(metrics.Registry(), "froyo_fgs_runs_completed_total"); got != 1 {
		t.Errorf("completed run series = %d, want 1", got)
	}
}
