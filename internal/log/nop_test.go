package log

import (
	"context"
	"errors"
	"testing"
)

func TestNop_AllMethodsSafe(t *testing.T) {
	l := Nop()
	ctx := context.Background()

	l.Debug(ctx, "d", "k", "v")
	l.Info(ctx, "i")
	l.Warn(ctx, "w", "odd")
	l.Error(ctx, errors.New("boom"), "e")
	l.Error(ctx, nil, "e2")

	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func TestNop_WithReturnsUsableLogger(t *testing.T) {
	l := Nop().With("component", "test")
	if l == nil {
		t.Fatal("With returned nil")
	}
	l.Info(context.Background(), "still a nop")
}
