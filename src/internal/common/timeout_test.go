package common

import (
	"testing"
	"time"
)

func TestCreateContextCarriesARequestedDeadline(t *testing.T) {
	ctx, cancel := CreateContext(50 * time.Millisecond)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected the context to carry a deadline")
	}
	if time.Until(deadline) > 50*time.Millisecond {
		t.Errorf("expected the deadline to be at most 50ms out, got %v", time.Until(deadline))
	}
}

func TestCreateContextWithDefaultCarriesA15SecondDeadline(t *testing.T) {
	ctx, cancel := CreateContextWithDefault()
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected the context to carry a deadline")
	}
	remaining := time.Until(deadline)
	if remaining <= 0 || remaining > 15*time.Second {
		t.Errorf("expected a deadline within (0, 15s], got %v", remaining)
	}
}
