package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/meter"
)

// Operation performs the work behind a metered tool endpoint. The real
// content generator lives outside this service.
type Operation interface {
	Run(ctx context.Context, feature, input string) (string, error)
}

var errEmptyInput = errors.New("input is required")

// echoOperation stands in for the content generator.
type echoOperation struct{}

func (echoOperation) Run(ctx context.Context, feature, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errEmptyInput
	}
	return fmt.Sprintf("[%s] %s", feature, input), nil
}

type toolRequest struct {
	Input string `json:"input"`
}

type toolResult struct {
	Feature string `json:"feature"`
	Output  string `json:"output"`
}

// toolHandler runs op for feature. Any non-2xx answer leaves the caller's
// usage untouched.
func toolHandler(op Operation, feature string, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req toolRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			meter.WriteJSON(w, http.StatusBadRequest, meter.Response{
				Error: &meter.ErrorDetail{Code: "bad_request", Message: "Request body must be JSON."},
			})
			return
		}

		out, err := op.Run(r.Context(), feature, req.Input)
		switch {
		case errors.Is(err, errEmptyInput):
			meter.WriteJSON(w, http.StatusUnprocessableEntity, meter.Response{
				Error: &meter.ErrorDetail{
					Code:    "validation_error",
					Message: "Invalid input.",
					Details: map[string][]string{"input": {err.Error()}},
				},
			})
		case err != nil:
			log.ErrorContext(r.Context(), "operation failed", logger.Feature(feature), logger.Error(err))
			meter.WriteJSON(w, http.StatusBadGateway, meter.Response{
				Error: &meter.ErrorDetail{Code: "operation_failed", Message: "Generation failed, you were not charged."},
			})
		default:
			meter.WriteJSON(w, http.StatusOK, meter.Response{Data: toolResult{Feature: feature, Output: out}})
		}
	}
}
