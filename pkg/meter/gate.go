package meter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/quotakit/pkg/entitlement"
	"github.com/dmitrymomot/quotakit/pkg/identity"
	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/quota"
	"github.com/dmitrymomot/quotakit/pkg/usagetoken"
)

// Engine is the part of entitlement.Engine the gate uses.
type Engine interface {
	CheckAndReserve(ctx context.Context, id identity.Identity, feature string) (*entitlement.Reservation, error)
	Commit(ctx context.Context, res *entitlement.Reservation) (*entitlement.Receipt, error)
	Usage(ctx context.Context, id identity.Identity, feature string) (entitlement.UsageInfo, error)
	Claim(ctx context.Context, accountID string, anon identity.Identity) (map[string]int64, error)
}

// FeatureChecker reports unknown features, see quota.Registry.Require.
type FeatureChecker interface {
	Require(features ...string) error
}

type Gate struct {
	engine     Engine
	resolver   *identity.Resolver
	cookies    *usagetoken.Cookies
	features   FeatureChecker
	log        *slog.Logger
	upgradeURL string
}

type Option func(*Gate)

func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// WithUpgradeURL adds a link to the pricing page to upgrade_required bodies.
func WithUpgradeURL(url string) Option {
	return func(g *Gate) {
		g.upgradeURL = url
	}
}

// WithFeatureChecker makes Metered panic for features without a policy.
func WithFeatureChecker(fc FeatureChecker) Option {
	return func(g *Gate) {
		g.features = fc
	}
}

func NewGate(engine Engine, resolver *identity.Resolver, cookies *usagetoken.Cookies, opts ...Option) *Gate {
	if cookies == nil {
		cookies = usagetoken.NewCookies("")
	}
	if resolver == nil {
		resolver = identity.NewResolver(cookies)
	}
	g := &Gate{
		engine:   engine,
		resolver: resolver,
		cookies:  cookies,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check resolves the caller and checks feature. When it returns false the
// response has already been written.
func (g *Gate) Check(w http.ResponseWriter, r *http.Request, feature string) (*entitlement.Reservation, bool) {
	ctx := r.Context()
	id := g.resolver.FromRequest(r)

	res, err := g.engine.CheckAndReserve(ctx, id, feature)
	if err != nil {
		if errors.Is(err, quota.ErrUnknownFeature) {
			g.log.ErrorContext(ctx, "metered route has no quota policy", logger.Feature(feature), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "configuration_error", "Feature is not configured.")
			return nil, false
		}
		g.log.ErrorContext(ctx, "entitlement check failed", logger.Feature(feature), logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "Please try again in a moment.")
		return nil, false
	}

	if !res.Verdict.Allowed {
		g.log.InfoContext(ctx, "feature use denied",
			logger.Event("upgrade_required"),
			logger.Feature(feature),
			logger.Verdict(res.Verdict.String(), string(res.Verdict.Reason)),
			logger.Usage(res.Used, res.Allowance),
			slog.Any("caller", id),
		)
		WriteUpgradeRequired(w, res, g.upgradeURL)
		return res, false
	}
	return res, true
}

// Commit records the use of res and stores the anonymous usage token in the
// response cookies. Store failures are logged, never surfaced: the operation
// already succeeded.
func (g *Gate) Commit(w http.ResponseWriter, r *http.Request, res *entitlement.Reservation) *entitlement.Receipt {
	ctx := r.Context()
	receipt, err := g.engine.Commit(ctx, res)
	if err != nil {
		g.log.WarnContext(ctx, "usage not recorded", logger.Feature(res.Feature), logger.Error(err))
		return nil
	}
	if receipt.Token != "" {
		g.cookies.Set(w, res.Feature, receipt.Token)
		g.cookies.EnsureVisitor(w, r)
	}
	return receipt
}

// Metered returns a middleware that meters every call of the wrapped handler
// against feature.
func (g *Gate) Metered(feature string) func(http.Handler) http.Handler {
	if g.features != nil {
		if err := g.features.Require(feature); err != nil {
			panic(fmt.Errorf("meter: %w", err))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := g.Check(w, r, feature)
			if !ok {
				return
			}

			buf := newBufferedWriter()
			next.ServeHTTP(buf, r.WithContext(WithReservation(r.Context(), res)))

			if buf.succeeded() && r.Context().Err() == nil {
				g.Commit(w, r, res)
			}
			if err := buf.flush(w); err != nil {
				g.log.DebugContext(r.Context(), "write metered response", logger.Error(err))
			}
		})
	}
}

// UsageHandler reports the caller's standing for the feature named by the
// chi URL parameter param.
func (g *Gate) UsageHandler(param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		feature := chi.URLParam(r, param)
		info, err := g.engine.Usage(r.Context(), g.resolver.FromRequest(r), feature)
		switch {
		case errors.Is(err, quota.ErrUnknownFeature):
			writeError(w, http.StatusNotFound, "unknown_feature", "No such feature.")
		case err != nil:
			g.log.ErrorContext(r.Context(), "usage lookup failed", logger.Feature(feature), logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, "service_unavailable", "Please try again in a moment.")
		default:
			WriteJSON(w, http.StatusOK, Response{Data: info})
		}
	}
}

// ClaimHandler moves the anonymous usage cookies of a signed-in caller onto
// their account and expires the claimed cookies.
func (g *Gate) ClaimHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := g.resolver.FromRequest(r)
		if !id.IsAuthenticated() {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Sign in to claim usage.")
			return
		}

		anon := identity.Anonymous(g.cookies.VisitorID(r), g.cookies.Tokens(r))
		merged, err := g.engine.Claim(ctx, id.AccountID, anon)
		if errors.Is(err, entitlement.ErrClaimDisabled) {
			writeError(w, http.StatusNotFound, "not_found", "Not found.")
			return
		}
		for feature := range merged {
			g.cookies.Delete(w, feature)
		}
		if err != nil {
			g.log.WarnContext(ctx, "claim incomplete", logger.AccountID(id.AccountID), logger.Error(err))
			WriteJSON(w, http.StatusServiceUnavailable, Response{
				Data:  merged,
				Error: &ErrorDetail{Code: "claim_incomplete", Message: "Some usage could not be transferred."},
			})
			return
		}
		WriteJSON(w, http.StatusOK, Response{Data: merged})
	}
}
