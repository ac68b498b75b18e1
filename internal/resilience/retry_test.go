package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func fastConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("always fails"), 500)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonRetryableError_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(5), func(_ context.Context) error {
		calls++
		return errors.New("permanent error: not found")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retry for non-retryable), got %d", calls)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    100 * time.Millisecond,
	}

	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return NewTransientError(errors.New("fail"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls before cancel stops retries, got %d", calls)
	}
}

func TestDo_CustomShouldRetry(t *testing.T) {
	var calls int
	cfg := fastConfig(3)
	cfg.ShouldRetry = func(err error) bool { return err.Error() == "retry me" }

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("retry me")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	var retries []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(retry int, _ error, delay time.Duration) {
		retries = append(retries, retry)
		if delay < 0 {
			t.Errorf("negative delay %v", delay)
		}
	}

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return NewTransientError(errors.New("fail"), 500)
	})

	if len(retries) != 2 {
		t.Fatalf("expected 2 OnRetry calls, got %d", len(retries))
	}
	if retries[0] != 1 || retries[1] != 2 {
		t.Errorf("expected retries [1, 2], got %v", retries)
	}
}

func TestRetryLogger(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	cfg := fastConfig(2)
	cfg.OnRetry = RetryLogger("supadata", "acquire")
	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return NewTransientError(errors.New("status 503"), 503)
	})

	entries := logs.FilterMessage("retrying operation").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 retry log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["service"] != "supadata" || fields["operation"] != "acquire" {
		t.Errorf("unexpected fields %v", fields)
	}
	if fields["retry"] != int64(1) {
		t.Errorf("expected retry 1, got %v", fields["retry"])
	}
}

func TestDoVal_ReturnsValueOnSuccess(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastConfig(3), func(_ context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", NewTransientError(errors.New("fail"), 500)
		}
		return "hello", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "hello" {
		t.Errorf("expected %q, got %q", "hello", val)
	}
}

func TestDoVal_ReturnsZeroOnFailure(t *testing.T) {
	val, err := DoVal(context.Background(), fastConfig(2), func(_ context.Context) (int, error) {
		return 42, NewTransientError(errors.New("fail"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if val != 0 {
		t.Errorf("expected zero value on failure, got %d", val)
	}
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for n, w := range want {
		if got := Backoff(n, cfg); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", n, got, w)
		}
	}

	prev := time.Duration(0)
	for n := 0; n < 64; n++ {
		got := Backoff(n, cfg)
		if got < prev {
			t.Fatalf("Backoff(%d) = %v decreased from %v", n, got, prev)
		}
		prev = got
	}
}

func TestDelay_JitterBounds(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, JitterFraction: 0.2}

	for n := 0; n < 10; n++ {
		base := Backoff(n, cfg)
		lo := time.Duration(float64(base) * 0.8)
		hi := time.Duration(float64(base) * 1.2)
		for i := 0; i < 200; i++ {
			d := Delay(n, cfg)
			if d < lo || d > hi {
				t.Fatalf("Delay(%d) = %v outside [%v, %v]", n, d, lo, hi)
			}
			if d > time.Duration(float64(cfg.MaxDelay)*1.2) {
				t.Fatalf("Delay(%d) = %v exceeds max*1.2", n, d)
			}
		}
	}
}

func TestDelay_NoJitter(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}
	if got := Delay(1, cfg); got != 100*time.Millisecond {
		t.Errorf("expected exact delay without jitter, got %v", got)
	}
}

func TestSleep_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFromRetryConfig(t *testing.T) {
	cfg := FromRetryConfig(2, 250, 4000, 0.2)
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts for 2 retries, got %d", cfg.MaxAttempts)
	}
	if cfg.BaseDelay != 250*time.Millisecond || cfg.MaxDelay != 4*time.Second {
		t.Errorf("unexpected delays: base=%v max=%v", cfg.BaseDelay, cfg.MaxDelay)
	}

	noRetry := FromRetryConfig(0, 0, 0, -1)
	if noRetry.MaxAttempts != 1 {
		t.Errorf("expected 1 attempt for 0 retries, got %d", noRetry.MaxAttempts)
	}
	if noRetry.JitterFraction != DefaultRetryConfig().JitterFraction {
		t.Errorf("negative jitter should keep default, got %v", noRetry.JitterFraction)
	}
}
