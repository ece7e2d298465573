// Package fgstest provides an in-memory FunctionGraph for tests.
package fgstest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/openfroyo/froyo-fgs/pkg/fgs"
)

// Platform is an in-memory fgs.Client. It counts calls per operation and can
// be told to fail specific operations.
type Platform struct {
	Region    string
	ProjectID string

	mu        sync.Mutex
	functions map[string]*fgs.FunctionRecord
	triggers  map[string][]fgs.TriggerRecord
	calls     map[string]int
	failures  map[string]error
	requests  []any
}

// NewPlatform creates an empty platform.
func NewPlatform(region, projectID string) *Platform {
	return &Platform{
		Region:    region,
		ProjectID: projectID,
		functions: make(map[string]*fgs.FunctionRecord),
		triggers:  make(map[string][]fgs.TriggerRecord),
		calls:     make(map[string]int),
		failures:  make(map[string]error),
	}
}

// URN returns the URN the platform assigns to a function.
func (p *Platform) URN(pkg, name string) string {
	return fmt.Sprintf("urn:fss:%s:%s:function:%s:%s:latest", p.Region, p.ProjectID, pkg, name)
}

// Fail makes every later call of op return err. A nil err clears the failure.
func (p *Platform) Fail(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, op)
		return
	}
	p.failures[op] = err
}

// NotFound returns the error the platform uses for missing resources.
func NotFound(op string) error {
	return &fgs.APIError{Operation: op, StatusCode: http.StatusNotFound, Code: "FSS.1051", Message: "not found"}
}

// ServerError returns a 500 error for op.
func ServerError(op string) error {
	return &fgs.APIError{Operation: op, StatusCode: http.StatusInternalServerError, Code: "FSS.0500", Message: "internal error"}
}

// Calls returns how many times op was called.
func (p *Platform) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// TotalCalls returns the number of calls of any operation.
func (p *Platform) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

// MutationCalls returns the number of create, update and delete calls.
func (p *Platform) MutationCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for op, c := range p.calls {
		if op != fgs.OpGetFunction && op != fgs.OpListTriggers {
			n += c
		}
	}
	return n
}

// Requests returns the request bodies received, in order.
func (p *Platform) Requests() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.requests...)
}

// ResetCalls zeroes the call counters and request log.
func (p *Platform) ResetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = make(map[string]int)
	p.requests = nil
}

// PutFunction seeds a function record.
func (p *Platform) PutFunction(rec fgs.FunctionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.functions[rec.FuncURN] = &rec
}

// PutTrigger seeds a trigger on the function urn and returns its id.
func (p *Platform) PutTrigger(urn string, rec fgs.TriggerRecord) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rec.TriggerID == "" {
		rec.TriggerID = uuid.NewString()
	}
	p.triggers[urn] = append(p.triggers[urn], rec)
	return rec.TriggerID
}

// Triggers returns a copy of the triggers on urn.
func (p *Platform) Triggers(urn string) []fgs.TriggerRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]fgs.TriggerRecord(nil), p.triggers[urn]...)
}

// Function returns the stored record for urn.
func (p *Platform) Function(urn string) (fgs.FunctionRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.functions[urn]
	if !ok {
		return fgs.FunctionRecord{}, false
	}
	return *rec, true
}

// enter records the call and returns the injected failure, if any. The
// caller must hold p.mu.
func (p *Platform) enter(ctx context.Context, op string, req any) error {
	p.calls[op]++
	if req != nil {
		p.requests = append(p.requests, req)
	}
	if err := ctx.Err(); err != nil {
		return &fgs.APIError{Operation: op, Err: err}
	}
	return p.failures[op]
}

func (p *Platform) GetFunction(ctx context.Context, urn string) (*fgs.FunctionRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, fgs.OpGetFunction, nil); err != nil {
		return nil, err
	}
	rec, ok := p.functions[urn]
	if !ok {
		return nil, NotFound(fgs.OpGetFunction)
	}
	out := *rec
	return &out, nil
}

func (p *Platform) CreateFunction(ctx context.Context, req *fgs.FunctionRequest) (*fgs.FunctionRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, fgs.OpCreateFunction, req); err != nil {
		return nil, err
	}
	urn := p.URN(req.Package, req.FuncName)
	if _, exists := p.functions[urn]; exists {
		return nil, &fgs.APIError{Operation: fgs.OpCreateFunction, StatusCode: http.StatusConflict, Code: "FSS.1052", Message: "function already exists"}
	}
	rec := recordFrom(urn, p.ProjectID, req)
	p.functions[urn] = rec
	out := *rec
	return &out, nil
}

func (p *Platform) UpdateFunction(ctx context.Context, urn string, req *fgs.FunctionRequest) (*fgs.FunctionRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, fgs.OpUpdateFunction, req); err != nil {
		return nil, err
	}
	if _, ok := p.functions[urn]; !ok {
		return nil, NotFound(fgs.OpUpdateFunction)
	}
	rec := recordFrom(urn, p.ProjectID, req)
	p.functions[urn] = rec
	out := *rec
	return &out, nil
}

func (p *Platform) DeleteFunction(ctx context.Context, urn string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, fgs.OpDeleteFunction, nil); err != nil {
		return err
	}
	if _, ok := p.functions[urn]; !ok {
		return NotFound(fgs.OpDeleteFunction)
	}
	delete(p.functions, urn)
	delete(p.triggers, urn)
	return nil
}

func (p *Platform) ListTriggers(ctx context.Context, functionURN string) ([]fgs.TriggerRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, fgs.OpListTriggers, nil); err != nil {
		return nil, err
	}
	out := append([]fgs.TriggerRecord(nil), p.triggers[functionURN]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedTime < out[j].CreatedTime })
	return out, nil
}

func (p *Platform) CreateTrigger(ctx context.Context, functionURN string, req *fgs.CreateTriggerRequest) (*fgs.TriggerRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, fgs.OpCreateTrigger, req); err != nil {
		return nil, err
	}
	rec := fgs.TriggerRecord{
		TriggerID:       uuid.NewString(),
		TriggerTypeCode: req.TriggerTypeCode,
		TriggerStatus:   req.TriggerStatus,
		EventTypeCode:   req.EventTypeCode,
		EventData:       copyMap(req.EventData),
	}
	p.triggers[functionURN] = append(p.triggers[functionURN], rec)
	return &rec, nil
}

func (p *Platform) UpdateTrigger(ctx context.Context, functionURN string, req *fgs.UpdateTriggerRequest) (*fgs.TriggerRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, fgs.OpUpdateTrigger, req); err != nil {
		return nil, err
	}
	list := p.triggers[functionURN]
	for i := range list {
		if list[i].TriggerID == req.TriggerID && list[i].TriggerTypeCode == req.TriggerTypeCode {
			list[i].TriggerStatus = req.TriggerStatus
			out := list[i]
			return &out, nil
		}
	}
	return nil, NotFound(fgs.OpUpdateTrigger)
}

func (p *Platform) DeleteTrigger(ctx context.Context, functionURN string, req *fgs.DeleteTriggerRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, fgs.OpDeleteTrigger, req); err != nil {
		return err
	}
	list := p.triggers[functionURN]
	for i := range list {
		if list[i].TriggerID == req.TriggerID {
			p.triggers[functionURN] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return NotFound(fgs.OpDeleteTrigger)
}

func recordFrom(urn, project string, req *fgs.FunctionRequest) *fgs.FunctionRecord {
	return &fgs.FunctionRecord{
		FuncURN:        urn,
		FuncName:       req.FuncName,
		Package:        req.Package,
		ProjectName:    project,
		Runtime:        req.Runtime,
		Handler:        req.Handler,
		MemorySize:     req.MemorySize,
		Timeout:        req.Timeout,
		CodeType:       req.CodeType,
		CodeURL:        req.CodeURL,
		CodeSize:       int64(len(req.CodeURL) + codeLen(req.FuncCode)),
		Description:    req.Description,
		Xrole:          req.Xrole,
		StrategyConfig: req.StrategyConfig,
		FuncVpc:        req.FuncVpc,
		LogGroupID:     req.LogGroupID,
		LogStreamID:    req.LogStreamID,
		Version:        "latest",
	}
}

func codeLen(c *fgs.FunctionCode) int {
	if c == nil {
		return 0
	}
	return len(c.File)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ fgs.Client = (*Platform)(nil)
