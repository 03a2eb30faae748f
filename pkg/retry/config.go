package retry

import (
	"time"

	"github.com/Combine-Capital/kvcache/pkg/config"
	"github.com/Combine-Capital/kvcache/pkg/errors"
)

// Policy defines which errors are retried.
type Policy int

const (
	// PolicyTemporary retries only errors.Temporary errors.
	PolicyTemporary Policy = iota
	// PolicyAll retries every error.
	PolicyAll
	// PolicyNone executes once.
	PolicyNone
)

// PolicyFunc decides whether err should be retried.
type PolicyFunc func(error) bool

// NotifyFunc is called after a failed attempt, before sleeping for delay.
type NotifyFunc func(err error, delay time.Duration)

// Config holds the retry configuration.
type Config struct {
	// MaxAttempts counts the initial attempt. Default is 10.
	MaxAttempts uint

	// InitialDelay is the first backoff delay. Default is 100ms.
	InitialDelay time.Duration

	// MaxDelay caps a single backoff delay. Default is 5s.
	MaxDelay time.Duration

	// Multiplier grows the delay between attempts. Default is 2.0.
	Multiplier float64

	// Jitter is the randomization factor (0.0 to 1.0). Default is 0.25.
	Jitter float64

	// MaxElapsedTime bounds all attempts together; 0 means no limit.
	MaxElapsedTime time.Duration

	Policy Policy

	// PolicyFunc takes precedence over Policy when set.
	PolicyFunc PolicyFunc

	// Notify is optional.
	Notify NotifyFunc
}

// FromConnect builds the retry configuration used for the initial store
// connection. Every failure is retried since the store may still be starting.
func FromConnect(cfg config.ConnectConfig) Config {
	return Config{
		MaxAttempts:    cfg.MaxAttempts,
		InitialDelay:   cfg.InitialBackoff,
		MaxDelay:       cfg.MaxBackoff,
		MaxElapsedTime: cfg.Timeout,
		Policy:         PolicyAll,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 10
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.Jitter == 0 {
		c.Jitter = 0.25
	}
	return c
}

func (c Config) shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if c.PolicyFunc != nil {
		return c.PolicyFunc(err)
	}

	switch c.Policy {
	case PolicyAll:
		return true
	case PolicyNone:
		return false
	default:
		return errors.IsTemporary(err)
	}
}
