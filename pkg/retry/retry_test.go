package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/config"
	kverrors "github.com/Combine-Capital/kvcache/pkg/errors"
)

func TestDoPolicies(t *testing.T) {
	errAny := errors.New("connection refused")

	tests := []struct {
		name         string
		cfg          Config
		failures     int
		err          error
		wantErr      bool
		wantAttempts int
	}{
		{
			name:         "success first try",
			cfg:          Config{MaxAttempts: 3},
			wantAttempts: 1,
		},
		{
			name:         "temporary errors retried",
			cfg:          Config{MaxAttempts: 3, Policy: PolicyTemporary},
			failures:     2,
			err:          kverrors.NewTemporary("store starting", errAny),
			wantAttempts: 3,
		},
		{
			name:         "permanent error not retried",
			cfg:          Config{MaxAttempts: 5, Policy: PolicyTemporary},
			failures:     5,
			err:          kverrors.NewPermanent("bad credentials", nil),
			wantErr:      true,
			wantAttempts: 1,
		},
		{
			name:         "cache signal not retried by default",
			cfg:          Config{MaxAttempts: 5},
			failures:     5,
			err:          kverrors.Internal(kverrors.KindCacheWrite, "RedisService", "Cache Set error: k v"),
			wantErr:      true,
			wantAttempts: 1,
		},
		{
			name:         "policy all retries plain errors",
			cfg:          Config{MaxAttempts: 3, Policy: PolicyAll},
			failures:     2,
			err:          errAny,
			wantAttempts: 3,
		},
		{
			name:         "policy all gives up after max attempts",
			cfg:          Config{MaxAttempts: 3, Policy: PolicyAll},
			failures:     10,
			err:          errAny,
			wantErr:      true,
			wantAttempts: 3,
		},
		{
			name:         "policy none",
			cfg:          Config{MaxAttempts: 5, Policy: PolicyNone},
			failures:     5,
			err:          errAny,
			wantErr:      true,
			wantAttempts: 1,
		},
		{
			name: "policy func accepts",
			cfg: Config{MaxAttempts: 5, PolicyFunc: func(err error) bool {
				return err.Error() == "retry me"
			}},
			failures:     2,
			err:          errors.New("retry me"),
			wantAttempts: 3,
		},
		{
			name: "policy func rejects",
			cfg: Config{MaxAttempts: 5, PolicyFunc: func(err error) bool {
				return err.Error() == "retry me"
			}},
			failures:     5,
			err:          errors.New("leave me"),
			wantErr:      true,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.InitialDelay = time.Millisecond
			tt.cfg.MaxDelay = 2 * time.Millisecond

			attempts := 0
			err := Do(context.Background(), tt.cfg, func() error {
				attempts++
				if attempts <= tt.failures {
					return tt.err
				}
				return nil
			})

			if (err != nil) != tt.wantErr {
				t.Errorf("Do() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, tt.err) {
				t.Errorf("Do() error = %v, want last error %v", err, tt.err)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
		})
	}
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 10, InitialDelay: 50 * time.Millisecond, Policy: PolicyAll}

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("always fails")
	})

	if err == nil {
		t.Fatal("Do() error = nil after cancellation")
	}
	if attempts > 3 {
		t.Errorf("attempts = %d, want <= 3 after cancellation", attempts)
	}
}

func TestDoWithData(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, Policy: PolicyAll}

	attempts := 0
	got, err := DoWithData(context.Background(), cfg, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	})
	if err != nil || got != 42 || attempts != 3 {
		t.Fatalf("DoWithData() = %d, %v after %d attempts; want 42, nil after 3", got, err, attempts)
	}

	last, err := DoWithData(context.Background(), cfg, func() (string, error) {
		return "partial", errors.New("always fails")
	})
	if err == nil {
		t.Fatal("DoWithData() error = nil, want exhaustion error")
	}
	if last != "partial" {
		t.Errorf("DoWithData() = %q, want last attempted value", last)
	}
}

func TestDoNotify(t *testing.T) {
	var delays []time.Duration
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Policy:       PolicyAll,
		Notify: func(err error, d time.Duration) {
			delays = append(delays, d)
		},
	}

	_ = Do(context.Background(), cfg, func() error { return errors.New("down") })

	if len(delays) != 2 {
		t.Errorf("notify called %d times, want 2 (between 3 attempts)", len(delays))
	}
}

func TestMaxElapsedTime(t *testing.T) {
	cfg := Config{
		MaxAttempts:    100,
		InitialDelay:   10 * time.Millisecond,
		MaxElapsedTime: 50 * time.Millisecond,
		Policy:         PolicyAll,
	}

	attempts := 0
	start := time.Now()
	_ = Do(context.Background(), cfg, func() error {
		attempts++
		return errors.New("keep failing")
	})

	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Do() ran for %v, want it bounded near 50ms", elapsed)
	}
	if attempts < 2 {
		t.Errorf("attempts = %d, want at least 2", attempts)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.MaxAttempts != 10 {
		t.Errorf("MaxAttempts = %d, want 10", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != 100*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 100ms", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 5*time.Second {
		t.Errorf("MaxDelay = %v, want 5s", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2.0", cfg.Multiplier)
	}
	if cfg.Jitter != 0.25 {
		t.Errorf("Jitter = %v, want 0.25", cfg.Jitter)
	}
}

func TestFromConnect(t *testing.T) {
	cfg := FromConnect(config.ConnectConfig{
		MaxAttempts:    5,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Timeout:        30 * time.Second,
	})

	if cfg.MaxAttempts != 5 || cfg.InitialDelay != 200*time.Millisecond ||
		cfg.MaxDelay != 5*time.Second || cfg.MaxElapsedTime != 30*time.Second {
		t.Errorf("FromConnect() = %+v", cfg)
	}
	if !cfg.shouldRetry(errors.New("dial tcp: connection refused")) {
		t.Error("connect retry should accept plain dial errors")
	}
}
