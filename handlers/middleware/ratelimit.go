package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rainbowsvgs/spectra/utils"
)

type rateLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies per-token or per-ip rate limits to api
// requests. Authenticated tokens carry their own limit, unauthenticated
// requests fall back to the configured default.
type RateLimitMiddleware struct {
	rateLimiters     map[string]*rateLimitEntry
	mutex            sync.RWMutex
	cleanupTimer     *time.Timer
	whitelistedIPs   map[string]bool
	whitelistedCIDRs []*net.IPNet
}

func NewRateLimitMiddleware() *RateLimitMiddleware {
	middleware := &RateLimitMiddleware{
		rateLimiters:     make(map[string]*rateLimitEntry),
		whitelistedIPs:   make(map[string]bool),
		whitelistedCIDRs: make([]*net.IPNet, 0),
	}

	for _, ipOrCidr := range utils.Config.RateLimit.WhitelistedIPs {
		if _, ipNet, err := net.ParseCIDR(ipOrCidr); err == nil {
			middleware.whitelistedCIDRs = append(middleware.whitelistedCIDRs, ipNet)
		} else if parsedIP := net.ParseIP(ipOrCidr); parsedIP != nil {
			middleware.whitelistedIPs[ipOrCidr] = true
		} else {
			logrus.WithField("entry", ipOrCidr).Warn("invalid IP/CIDR in rate limit whitelist, ignoring")
		}
	}

	middleware.startCleanupTimer()

	return middleware
}

func (m *RateLimitMiddleware) startCleanupTimer() {
	m.cleanupTimer = time.AfterFunc(5*time.Minute, func() {
		m.cleanupOldLimiters()
		m.startCleanupTimer()
	})
}

func (m *RateLimitMiddleware) cleanupOldLimiters() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for key, entry := range m.rateLimiters {
		if entry.lastSeen.Before(cutoff) {
			delete(m.rateLimiters, key)
		}
	}
}

func (m *RateLimitMiddleware) isWhitelisted(ip string) bool {
	if m.whitelistedIPs[ip] {
		return true
	}

	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, ipNet := range m.whitelistedCIDRs {
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}

func (m *RateLimitMiddleware) getRateLimiter(key string, limit uint, burst uint) *rate.Limiter {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if burst == 0 {
		burst = 10
	}

	entry, exists := m.rateLimiters[key]
	if !exists {
		// limits are configured per minute
		limiter := rate.NewLimiter(rate.Limit(limit)/60, int(burst))
		entry = &rateLimitEntry{
			limiter:  limiter,
			lastSeen: time.Now(),
		}
		m.rateLimiters[key] = entry
	} else {
		entry.lastSeen = time.Now()
	}

	return entry.limiter
}

func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := GetClientIP(r)

		var rateLimitKey string
		rateLimit := utils.Config.RateLimit.Rate
		rateLimitBurst := utils.Config.RateLimit.Burst

		if tokenInfo := GetTokenInfo(r); tokenInfo != nil {
			if tokenInfo.RateLimit > 0 {
				rateLimit = tokenInfo.RateLimit
				rateLimitBurst = tokenInfo.RateLimit
			} else {
				// unlimited token
				rateLimit = 0
			}

			rateLimitKey = fmt.Sprintf("token:%s", tokenInfo.Name)
		} else {
			rateLimitKey = fmt.Sprintf("ip:%s", clientIP)
		}

		if rateLimit > 0 && !m.isWhitelisted(clientIP) {
			limiter := m.getRateLimiter(rateLimitKey, rateLimit, rateLimitBurst)
			if !limiter.AllowN(time.Now(), 1) {
				w.Header().Set("X-RateLimit-Limit", strconv.FormatUint(uint64(rateLimit), 10))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))

				logrus.WithFields(logrus.Fields{
					"client_ip":      clientIP,
					"rate_limit_key": rateLimitKey,
					"rate_limit":     rateLimit,
				}).Warn("api rate limit exceeded")

				APIErrorResponse(w, http.StatusTooManyRequests, "ERROR: rate limit exceeded")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatUint(uint64(rateLimit), 10))
			remaining := limiter.Tokens()
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatFloat(remaining, 'f', 0, 64))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
		}

		next.ServeHTTP(w, r)
	})
}
