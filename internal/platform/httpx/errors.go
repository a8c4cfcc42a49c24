package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/invoiceflow/invoiceflow/internal/shared"
)

// RateLimitHandler writes the rate-limited error envelope. Installed as the
// httprate limit handler so throttled responses keep the JSON shape.
func RateLimitHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, logger, shared.ErrRateLimited)
	}
}

// RespondError maps domain errors to the error envelope. Errors carrying an
// explicit code and status pass through unchanged; anything else becomes a
// generic 500 with the cause logged server-side only.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	domainErr, ok := shared.AsError(err)
	if !ok {
		if logger != nil {
			logger.Error("unexpected error", slog.Any("error", err))
		}
		domainErr = shared.ServerError("SERVER_ERROR", err)
	} else if domainErr.Status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", slog.String("code", domainErr.Code), slog.Any("error", err))
	}

	JSON(w, domainErr.Status, ErrorEnvelope{
		Success: false,
		Error: ErrorBody{
			Code:      domainErr.Code,
			Message:   domainErr.Message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Details:   domainErr.Details,
		},
	})
}
