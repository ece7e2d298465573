package fgs

import (
	"context"

	"github.com/openfroyo/froyo-fgs/pkg/telemetry"
)

type instrumented struct {
	next    Client
	tracer  *telemetry.Tracer
	metrics *telemetry.Metrics
}

// Instrumented wraps next so every call produces one span and one set of
// metric observations. Nil tracer or metrics are allowed.
func Instrumented(next Client, tracer *telemetry.Tracer, metrics *telemetry.Metrics) Client {
	if tracer == nil {
		tracer = telemetry.NopTracer()
	}
	return &instrumented{next: next, tracer: tracer, metrics: metrics}
}

func (c *instrumented) observe(ctx context.Context, op, resource string) (context.Context, func(error)) {
	ctx, span := c.tracer.StartRemoteCallSpan(ctx, op, resource)
	timer := telemetry.NewTimer()
	return ctx, func(err error) {
		c.metrics.RecordRemoteCall(op, timer.Duration())
		if err != nil {
			status := StatusOf(err)
			c.metrics.RecordRemoteError(op, status)
			span.SetAttributes(telemetry.AttrHTTPStatus.Int(status))
		}
		telemetry.EndSpan(span, err)
	}
}

func (c *instrumented) GetFunction(ctx context.Context, urn string) (rec *FunctionRecord, err error) {
	ctx, done := c.observe(ctx, OpGetFunction, urn)
	defer func() { done(err) }()
	return c.next.GetFunction(ctx, urn)
}

func (c *instrumented) CreateFunction(ctx context.Context, req *FunctionRequest) (rec *FunctionRecord, err error) {
	ctx, done := c.observe(ctx, OpCreateFunction, req.FuncName)
	defer func() { done(err) }()
	return c.next.CreateFunction(ctx, req)
}

func (c *instrumented) UpdateFunction(ctx context.Context, urn string, req *FunctionRequest) (rec *FunctionRecord, err error) {
	ctx, done := c.observe(ctx, OpUpdateFunction, urn)
	defer func() { done(err) }()
	return c.next.UpdateFunction(ctx, urn, req)
}

func (c *instrumented) DeleteFunction(ctx context.Context, urn string) (err error) {
	ctx, done := c.observe(ctx, OpDeleteFunction, urn)
	defer func() { done(err) }()
	return c.next.DeleteFunction(ctx, urn)
}

func (c *instrumented) ListTriggers(ctx context.Context, functionURN string) (recs []TriggerRecord, err error) {
	ctx, done := c.observe(ctx, OpListTriggers, functionURN)
	defer func() { done(err) }()
	return c.next.ListTriggers(ctx, functionURN)
}

func (c *instrumented) CreateTrigger(ctx context.Context, functionURN string, req *CreateTriggerRequest) (rec *TriggerRecord, err error) {
	ctx, done := c.observe(ctx, OpCreateTrigger, req.TriggerTypeCode)
	defer func() { done(err) }()
	return c.next.CreateTrigger(ctx, functionURN, req)
}

func (c *instrumented) UpdateTrigger(ctx context.Context, functionURN string, req *UpdateTriggerRequest) (rec *TriggerRecord, err error) {
	ctx, done := c.observe(ctx, OpUpdateTrigger, req.TriggerTypeCode)
	defer func() { done(err) }()
	return c.next.UpdateTrigger(ctx, functionURN, req)
}

func (c *instrumented) DeleteTrigger(ctx context.Context, functionURN string, req *DeleteTriggerRequest) (err error) {
	ctx, done := c.observe(ctx, OpDeleteTrigger, req.TriggerTypeCode)
	defer func() { done(err) }()
	return c.next.DeleteTrigger(ctx, functionURN, req)
}
