package fgs_test

import (
	"context"
	"testing"

	"github.com/openfroyo/froyo-fgs/pkg/fgs"
	"github.com/openfroyo/froyo-fgs/pkg/fgs/fgstest"
	"github.com/openfroyo/froyo-fgs/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInstrumented(t *testing.T) {
	platform := fgstest.NewPlatform("cn-north-4", "proj")
	recorder := tracetest.NewSpanRecorder()
	tracer := telemetry.NewTracerWithProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	metrics, err := telemetry.NewMetrics(telemetry.DefaultConfig().Metrics)
	if err != nil {
		t.Fatal(err)
	}

	client := fgs.Instrumented(platform, tracer, metrics)
	ctx := context.Background()

	urn := platform.URN("default", "hello")
	if _, err := client.GetFunction(ctx, urn); !fgs.IsNotFound(err) {
		t.Fatalf("GetFunction() error = %v, want not found", err)
	}
	if _, err := client.CreateFunction(ctx, &fgs.FunctionRequest{FuncName: "hello", Package: "default"}); err != nil {
		t.Fatalf("CreateFunction() error = %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "fgs.get-function" || spans[1].Name() != "fgs.create-function" {
		t.Errorf("span names = %s, %s", spans[0].Name(), spans[1].Name())
	}

	if n := testutil.CollectAndCount(metrics.Registry(), "froyo_fgs_remote_calls_total"); n != 2 {
		t.Errorf("remote call series = %d, want 2", n)
	}
	if n := testutil.CollectAndCount(metrics.Registry(), "froyo_fgs_remote_call_errors_total"); n != 1 {
		t.Errorf("remote error series = %d, want 1", n)
	}
	if platform.Calls(fgs.OpGetFunction) != 1 || platform.Calls(fgs.OpCreateFunction) != 1 {
		t.Error("decorator should forward each call exactly once")
	}
}

func TestInstrumented_NilCollaborators(t *testing.T) {
	platform := fgstest.NewPlatform("cn-north-4", "proj")
	client := fgs.Instrumented(platform, nil, nil)
	if _, err := client.ListTriggers(context.Background(), "urn"); err != nil {
		t.Fatalf("ListTriggers() error = %v", err)
	}
}
