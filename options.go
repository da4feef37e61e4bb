// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package pollio

// config holds the resolved construction options for a Pollee.
type config struct {
	logger Logger
}

// Option configures a Pollee at construction time.
type Option interface {
	applyPollee(*config) error
}

// optionFunc implements Option.
type optionFunc func(*config) error

func (f optionFunc) applyPollee(c *config) error { return f(c) }

// WithLogger attaches a structured Logger to a Pollee: every non-empty
// AddEvents call, and every DelEvents and ResetEvents call, emits a
// debug-level entry naming the delta (and, for AddEvents and ResetEvents,
// how many subscribers were woken). Omit this option (the default) for zero
// logging overhead.
func WithLogger(logger Logger) Option {
	return optionFunc(func(c *config) error {
		c.logger = logger
		return nil
	})
}

// resolveOptions applies opts in order, skipping nils, and returns the
// resulting config. A nil Logger (WithLogger(nil)) is replaced by the no-op
// logger, so logging is disabled.
func resolveOptions(opts []Option) (*config, error) {
	cfg := &config{logger: NewNoopLogger()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyPollee(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = NewNoopLogger()
	}
	return cfg, nil
}
