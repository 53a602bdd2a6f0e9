package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: " kind ", Value: " candidate "},
		StringField{Key: "", Value: "dropped"},
		StringField{Key: "empty", Value: "   "},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != "kind" {
		t.Fatalf("expected trimmed key, got %q", fields[0].Key)
	}

	empty := StringFields()
	if len(empty) != 0 {
		t.Fatalf("expected no fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	enriched := WithFields(logger, zap.String("foo", "bar"))
	enriched.Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["foo"] != "bar" {
		t.Fatalf("expected foo=bar in context, got %v", entries[0].ContextMap())
	}

	// A nil logger must not panic.
	enriched = WithFields(nil, zap.String("baz", "qux"))
	enriched.Info("noop")
}

func TestWithSubject(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	WithSubject(logger, "candidate", "c1").Info("browsing")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx[FieldSubjectKind] != "candidate" || ctx[FieldSubjectID] != "c1" {
		t.Fatalf("unexpected subject fields: %v", ctx)
	}

	// Empty values are dropped rather than logged blank.
	WithSubject(logger, "", "").Info("anonymous")
	if len(logs.All()[1].Context) != 0 {
		t.Fatalf("expected no fields for empty subject, got %v", logs.All()[1].ContextMap())
	}
}
