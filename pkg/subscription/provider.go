package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/quotakit/pkg/accounts"
	"github.com/dmitrymomot/quotakit/pkg/logger"
)

const defaultTimeout = 2 * time.Second

var errProFound = errors.New("pro reading found")

// Provider resolves the Status of an account from one or more sources.
type Provider struct {
	sources       []FlagSource
	timeout       time.Duration
	failOpen      bool
	log           *slog.Logger
	onUnavailable func(ctx context.Context, accountID string, err error)
}

type Option func(*Provider)

// WithFallback adds secondary sources. A Pro reading from any of them wins.
func WithFallback(sources ...FlagSource) Option {
	return func(p *Provider) {
		for _, s := range sources {
			if s != nil {
				p.sources = append(p.sources, s)
			}
		}
	}
}

// WithTimeout bounds every single source read.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithFailOpen sets what happens when no source can be read: Free (true,
// the default) or an ErrStatusUnavailable error (false).
func WithFailOpen(failOpen bool) Option {
	return func(p *Provider) {
		p.failOpen = failOpen
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(p *Provider) {
		if log != nil {
			p.log = log
		}
	}
}

// WithUnavailableHook is called every time no source could be read.
func WithUnavailableHook(fn func(ctx context.Context, accountID string, err error)) Option {
	return func(p *Provider) {
		p.onUnavailable = fn
	}
}

// NewProvider creates a Provider reading primary first in the source list.
func NewProvider(primary FlagSource, opts ...Option) *Provider {
	p := &Provider{
		timeout:  defaultTimeout,
		failOpen: true,
		log:      slog.New(slog.DiscardHandler),
	}
	if primary != nil {
		p.sources = append(p.sources, primary)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type reading struct {
	pro bool
	err error
}

// ResolveStatus returns the tier of accountID. An empty account id is Free.
func (p *Provider) ResolveStatus(ctx context.Context, accountID string) (Status, error) {
	if accountID == "" || len(p.sources) == 0 {
		return StatusFree, nil
	}

	readings := make([]reading, len(p.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range p.sources {
		g.Go(func() error {
			readings[i] = p.read(gctx, src, accountID)
			if readings[i].pro {
				return errProFound
			}
			return nil
		})
	}
	_ = g.Wait()

	var (
		errs     []error
		readable bool
	)
	for _, r := range readings {
		if r.pro {
			return StatusPro, nil
		}
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		readable = true
	}

	if readable {
		if len(errs) > 0 {
			p.log.DebugContext(ctx, "subscription source degraded",
				logger.AccountID(accountID),
				logger.Error(errors.Join(errs...)))
		}
		return StatusFree, nil
	}

	err := errors.Join(append([]error{ErrStatusUnavailable}, errs...)...)
	if p.onUnavailable != nil {
		p.onUnavailable(ctx, accountID, err)
	}
	if p.failOpen {
		p.log.WarnContext(ctx, "subscription status unavailable, treating account as free",
			logger.AccountID(accountID),
			logger.Error(err))
		return StatusFree, nil
	}
	return StatusFree, err
}

func (p *Provider) read(ctx context.Context, src FlagSource, accountID string) reading {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := src.ReadSubscriptionFlag(ctx, accountID)
	switch {
	case errors.Is(err, accounts.ErrAccountNotFound):
		return reading{}
	case err != nil:
		return reading{err: err}
	default:
		return reading{pro: Normalize(raw)}
	}
}
