package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/rainbowsvgs/spectra/utils"
)

// CorsMiddleware sets CORS headers for api requests from configured
// origins and answers preflight requests. Origin patterns support *
// wildcards, e.g. "https://*.example.org".
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && utils.Config.Api.Enabled && originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func originAllowed(origin string) bool {
	for _, pattern := range utils.Config.Api.CorsOrigins {
		if matchOrigin(pattern, origin) {
			return true
		}
	}
	return false
}

func matchOrigin(pattern, origin string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == origin
	}

	patternRe := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), "\\*", ".*") + "$"
	matched, err := regexp.MatchString(patternRe, origin)
	if err != nil {
		return false
	}
	return matched
}
