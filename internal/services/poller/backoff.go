package poller

import "time"

type BackoffConfig struct {
	Step1 time.Duration // default: 5 minutes
	Step2 time.Duration // default: 15 minutes
	Step3 time.Duration // default: 30 minutes
	Step4 time.Duration // default: 60 minutes, also every failure after the fourth
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Step1: 5 * time.Minute,
		Step2: 15 * time.Minute,
		Step3: 30 * time.Minute,
		Step4: 60 * time.Minute,
	}
}

// Backoff holds the delay schedule for accounts whose refresh keeps
// failing (bad credentials, carrier outage). The schedule caps at Step4.
type Backoff struct {
	cfg BackoffConfig
}

func NewBackoff(cfg BackoffConfig) *Backoff {
	def := DefaultBackoffConfig()
	if cfg.Step1 <= 0 {
		cfg.Step1 = def.Step1
	}
	if cfg.Step2 <= 0 {
		cfg.Step2 = def.Step2
	}
	if cfg.Step3 <= 0 {
		cfg.Step3 = def.Step3
	}
	if cfg.Step4 <= 0 {
		cfg.Step4 = def.Step4
	}
	return &Backoff{cfg: cfg}
}

func (b *Backoff) Delay(failCount int32) time.Duration {
	switch {
	case failCount <= 1:
		return b.cfg.Step1
	case failCount == 2:
		return b.cfg.Step2
	case failCount == 3:
		return b.cfg.Step3
	default:
		return b.cfg.Step4
	}
}
