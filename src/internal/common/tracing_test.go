package common

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestTagSpanDoesNotPanicWithoutATracerProvider(t *testing.T) {
	// No TracerProvider is ever registered by this module (spec §6); the
	// context carries only the default no-op span. TagSpan must be a safe
	// no-op against it rather than requiring a real span to be present.
	TagSpan(context.Background(), attribute.String("closestCommit", "deadbeef"))
}

func TestRecordSpanErrorIgnoresNilError(t *testing.T) {
	RecordSpanError(context.Background(), nil)
}

func TestRecordSpanErrorDoesNotPanicWithoutATracerProvider(t *testing.T) {
	RecordSpanError(context.Background(), errBoom)
}

var errBoom = &boomError{}

type boomError struct{}

func (e *boomError) Error() string { return "boom" }
