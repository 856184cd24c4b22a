package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/rainbowsvgs/spectra/handlers/middleware"
	"github.com/rainbowsvgs/spectra/services"
)

var logger = logrus.StandardLogger().WithField("module", "api")

// checkCallLimit applies the global call rate limiter to an api call.
// Returns false when the request was rejected and already answered.
func checkCallLimit(w http.ResponseWriter, r *http.Request, callCost uint) bool {
	err := services.GlobalCallRateLimiter.CheckCallLimit(r, callCost)
	if err != nil {
		middleware.APIErrorResponse(w, http.StatusTooManyRequests, "ERROR: rate limit exceeded")
		return false
	}

	return true
}

func writeJSONResponse(w http.ResponseWriter, response interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithError(err).Error("failed to encode response")
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}
