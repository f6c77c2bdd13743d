package entitlement

import (
	"sync/atomic"

	"github.com/dmitrymomot/quotakit/pkg/identity"
	"github.com/dmitrymomot/quotakit/pkg/subscription"
)

// Reason explains a denial.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonQuotaExceeded        Reason = "quota_exceeded"
	ReasonSubscriptionRequired Reason = "subscription_required"
)

type Verdict struct {
	Allowed bool
	Reason  Reason
}

func Allow() Verdict {
	return Verdict{Allowed: true}
}

func Deny(reason Reason) Verdict {
	return Verdict{Reason: reason}
}

func (v Verdict) String() string {
	if v.Allowed {
		return "allow"
	}
	return "deny"
}

// Reservation is the outcome of CheckAndReserve. Commit consumes it at most
// once.
type Reservation struct {
	Identity  identity.Identity
	Feature   string
	Status    subscription.Status // tier at check time
	Verdict   Verdict
	Used      int64 // count at check time, 0 for Pro
	Allowance int64

	committed atomic.Bool
}

// Receipt is the outcome of Commit.
type Receipt struct {
	// Counted is false for Pro callers, whose usage is not tracked.
	Counted bool
	Count   int64
	// Token is the new anonymous usage token the caller must store.
	Token string
}

// UsageInfo summarises a caller's standing for one feature.
type UsageInfo struct {
	Feature   string `json:"feature"`
	Tier      string `json:"tier"`
	Used      int64  `json:"used"`
	Allowance int64  `json:"allowance"`
	Remaining int64  `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
}
