package authcore

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/authcore/clock"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config

	users    user.Store
	sessions session.Store
	tx       Transactor
	clock    clock.Clock
	logger   *slog.Logger

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserStore sets the user repository. When it also implements
// Transactor and no transactor was set, it is used for transactions.
func (b *Builder) WithUserStore(store user.Store) *Builder {
	b.users = store
	return b
}

// WithSessionStore sets the session repository.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessions = store
	return b
}

// WithTransactor sets the transaction runner for multi-row writes.
func (b *Builder) WithTransactor(tx Transactor) *Builder {
	b.tx = tx
	return b
}

// WithClock overrides the time source. Tests pass a *clock.Fake.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger sets the logger used for internal failures. The default
// discards.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// Config.Audit.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.sessions == nil {
		return nil, errors.New("session store required")
	}

	tx := b.tx
	if tx == nil {
		if t, ok := b.users.(Transactor); ok {
			tx = t
		}
	}
	clk := b.clock
	if clk == nil {
		clk = clock.Real{}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	engine, err := newEngine(cfg, engineParts{
		users:     b.users,
		sessions:  b.sessions,
		tx:        tx,
		clock:     clk,
		logger:    logger,
		auditSink: b.auditSink,
	})
	if err != nil {
		return nil, err
	}

	b.built = true
	return engine, nil
}
