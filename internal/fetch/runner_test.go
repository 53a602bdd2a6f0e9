package fetch

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestActionRunnerSuccess(t *testing.T) {
	t.Parallel()

	r := NewActionRunner(zap.NewNop())

	ok := r.Execute(context.Background(), func(context.Context) error {
		return nil
	})

	if !ok {
		t.Fatal("expected execute to report success")
	}
	if !r.Success() {
		t.Fatal("success flag must be set")
	}
	if r.Loading() {
		t.Fatal("loading must be false after resolution")
	}
	if r.Err() != "" {
		t.Fatalf("unexpected error: %q", r.Err())
	}
}

func TestActionRunnerFailure(t *testing.T) {
	t.Parallel()

	r := NewActionRunner(zap.NewNop())

	ok := r.Execute(context.Background(), func(context.Context) error {
		return errors.New("rejected by server")
	})

	if ok {
		t.Fatal("expected execute to report failure")
	}
	if r.Success() {
		t.Fatal("success flag must stay false")
	}
	if r.Err() != "rejected by server" {
		t.Fatalf("unexpected error message: %q", r.Err())
	}
	if r.Loading() {
		t.Fatal("loading must be false after failure")
	}
}

func TestActionRunnerFailurePrefersDetail(t *testing.T) {
	t.Parallel()

	r := NewActionRunner(zap.NewNop())

	r.Execute(context.Background(), func(context.Context) error {
		return &detailErr{detail: "salary_min must be a number"}
	})

	if r.Err() != "salary_min must be a number" {
		t.Fatalf("expected structured detail, got %q", r.Err())
	}
}

func TestActionRunnerExecuteResetsPriorOutcome(t *testing.T) {
	t.Parallel()

	r := NewActionRunner(zap.NewNop())

	r.Execute(context.Background(), func(context.Context) error {
		return errors.New("first failure")
	})
	ok := r.Execute(context.Background(), func(context.Context) error {
		return nil
	})

	if !ok || !r.Success() || r.Err() != "" {
		t.Fatalf("second execution must start clean: success=%v err=%q", r.Success(), r.Err())
	}
}

func TestActionRunnerReset(t *testing.T) {
	t.Parallel()

	r := NewActionRunner(zap.NewNop())

	r.Execute(context.Background(), func(context.Context) error {
		return errors.New("boom")
	})
	r.Reset()

	if r.Loading() || r.Success() || r.Err() != "" {
		t.Fatalf("reset must clear all flags: loading=%v success=%v err=%q", r.Loading(), r.Success(), r.Err())
	}
}
