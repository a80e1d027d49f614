package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRetryPolicyRecovers(t *testing.T) {
	calls := 0
	policy := retryPolicy{maxRetries: 3, baseDelay: time.Millisecond}
	err := policy.do(context.Background(), zap.NewNop(), "fetch_block", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("rpc unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryPolicyGivesUp(t *testing.T) {
	cause := errors.New("rpc unavailable")
	calls := 0
	policy := retryPolicy{maxRetries: 2, baseDelay: time.Millisecond}
	err := policy.do(context.Background(), zap.NewNop(), "fetch_block", func(context.Context) error {
		calls++
		return cause
	})
	if !errors.Is(err, cause) || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := retryPolicy{maxRetries: 5, baseDelay: time.Hour}
	err := policy.do(ctx, zap.NewNop(), "fetch_block", func(context.Context) error {
		calls++
		cancel()
		return errors.New("rpc unavailable")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
