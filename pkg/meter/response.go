package meter

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/quotakit/pkg/entitlement"
)

const CodeUpgradeRequired = "upgrade_required"

// Response is the JSON envelope of every body written by this package.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// WriteJSON writes body with status in the package envelope.
func WriteJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Response{Error: &ErrorDetail{Code: code, Message: message}})
}

// WriteUpgradeRequired writes the denial of res as a 402 response.
func WriteUpgradeRequired(w http.ResponseWriter, res *entitlement.Reservation, upgradeURL string) {
	reason := string(res.Verdict.Reason)
	meta := map[string]any{
		"feature":   res.Feature,
		"reason":    reason,
		"used":      res.Used,
		"allowance": res.Allowance,
	}
	if upgradeURL != "" {
		meta["upgrade_url"] = upgradeURL
	}

	WriteJSON(w, http.StatusPaymentRequired, Response{
		Meta: meta,
		Error: &ErrorDetail{
			Code:    CodeUpgradeRequired,
			Message: upgradeMessage(res),
			Details: map[string][]string{
				"reason":  {reason},
				"feature": {res.Feature},
			},
		},
	})
}

func upgradeMessage(res *entitlement.Reservation) string {
	if res.Verdict.Reason == entitlement.ReasonSubscriptionRequired {
		return fmt.Sprintf("%s is available on the Pro plan.", res.Feature)
	}
	return fmt.Sprintf("You have used your free %s runs. Upgrade to Pro for unlimited access.", res.Feature)
}
