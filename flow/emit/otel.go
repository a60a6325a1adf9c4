package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by turning each Event into an
// OpenTelemetry span, started and ended immediately since an Event
// describes a point in time rather than a duration.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter wraps tracer (e.g. otel.Tracer("flowtools")).
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit starts and immediately ends a span named after event.Msg,
// carrying the event's standard fields, metadata, and concurrency
// attributes as span attributes. An "error" metadata key marks the span
// as errored.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	o.addStandardAttributes(span, event)
	o.addMetadataAttributes(span, event.Meta)
	o.addConcurrencyAttributes(span, event.Meta)

	if err, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, err)
		span.RecordError(fmt.Errorf("%s", err))
	}
}

// EmitBatch emits every event in order, relying on the tracer's batch
// span processor to amortize export cost.
func (o *OTelEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		o.Emit(event)
	}
	return nil
}

// Flush force-flushes the active tracer provider, if it supports it.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func (o *OTelEmitter) addStandardAttributes(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("flowtools.run_id", event.RunID),
		attribute.Int("flowtools.step", event.Step),
		attribute.String("flowtools.node_id", event.NodeID),
	)
}

// addMetadataAttributes converts event metadata to span attributes,
// remapping a few well-known keys onto a flowtools.* namespace.
func (o *OTelEmitter) addMetadataAttributes(span trace.Span, meta map[string]interface{}) {
	for key, value := range meta {
		if key == "step_id" || key == "order_key" || key == "attempt" {
			continue
		}

		attrKey := key
		switch key {
		case "tokens_in":
			attrKey = "flowtools.llm.tokens_in"
		case "tokens_out":
			attrKey = "flowtools.llm.tokens_out"
		case "cost_usd":
			attrKey = "flowtools.llm.cost_usd"
		case "latency_ms":
			attrKey = "flowtools.node.latency_ms"
		case "model":
			attrKey = "flowtools.llm.model"
		}

		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		case time.Duration:
			span.SetAttributes(attribute.Int64(attrKey, int64(v/time.Millisecond)))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
}

// addConcurrencyAttributes tags a wave dispatch's step id, ordering
// key, and retry attempt number, when the event carries them.
func (o *OTelEmitter) addConcurrencyAttributes(span trace.Span, meta map[string]interface{}) {
	if stepID, ok := meta["step_id"].(string); ok {
		span.SetAttributes(attribute.String("flowtools.step_id", stepID))
	}
	if orderKey, ok := meta["order_key"].(string); ok {
		span.SetAttributes(attribute.String("flowtools.order_key", orderKey))
	}
	if attempt, ok := meta["attempt"].(int); ok {
		span.SetAttributes(attribute.Int("flowtools.attempt", attempt))
	} else if attempt, ok := meta["attempt"].(int64); ok {
		span.SetAttributes(attribute.Int64("flowtools.attempt", attempt))
	}
}
