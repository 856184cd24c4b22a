package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/rainbowsvgs/spectra/utils"
)

// GetClientIP resolves the client ip of a request, honoring the
// configured proxy count for X-Forwarded-For headers.
func GetClientIP(r *http.Request) string {
	proxyCount := utils.Config.RateLimit.ProxyCount
	if proxyCount > 0 {
		forwardIps := strings.Split(r.Header.Get("X-Forwarded-For"), ", ")
		forwardIdx := len(forwardIps) - int(proxyCount)
		if forwardIdx >= 0 && forwardIps[forwardIdx] != "" {
			return forwardIps[forwardIdx]
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

// APIErrorResponse writes a json error body with the given status code.
func APIErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
