package services

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/rainbowsvgs/spectra/metrics"
	"github.com/rainbowsvgs/spectra/utils"
)

// CallRateLimiter throttles expensive frontend calls per client ip.
// It runs in front of the api token auth, so unauthenticated callers
// hit the ip limit while token holders get their own limits applied
// by the api middleware.
type CallRateLimiter struct {
	proxyCount uint
	rateLimit  uint
	burstLimit uint

	mutex   sync.Mutex
	clients map[string]*rateLimitClient

	clientsCount prometheus.Gauge
	newClients   prometheus.Counter
}

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var GlobalCallRateLimiter *CallRateLimiter

// StartCallRateLimiter starts the global per-ip call rate limiter.
func StartCallRateLimiter(proxyCount uint, rateLimit uint, burstLimit uint) error {
	if GlobalCallRateLimiter != nil {
		return nil
	}

	GlobalCallRateLimiter = &CallRateLimiter{
		proxyCount: proxyCount,
		rateLimit:  rateLimit,
		burstLimit: burstLimit,

		clients: map[string]*rateLimitClient{},

		clientsCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "spectra_call_rate_limiter_visitors_count",
			Help: "Number of visitors in the call rate limiter",
		}),
		newClients: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spectra_call_rate_limiter_new_visitors_count",
			Help: "Number of new visitors in the call rate limiter",
		}),
	}
	go GlobalCallRateLimiter.pruneClients()

	metrics.AddPreCollectFn(func() {
		GlobalCallRateLimiter.mutex.Lock()
		defer GlobalCallRateLimiter.mutex.Unlock()

		GlobalCallRateLimiter.clientsCount.Set(float64(len(GlobalCallRateLimiter.clients)))
	})

	return nil
}

// CheckCallLimit charges callCost tokens against the caller's limiter.
// A nil receiver allows everything, so callers do not need to check
// whether rate limiting is enabled.
func (crl *CallRateLimiter) CheckCallLimit(r *http.Request, callCost uint) error {
	if crl == nil {
		return nil
	}
	client := crl.getClient(r)
	if client == nil {
		return fmt.Errorf("could not resolve client ip")
	}
	if !client.limiter.AllowN(time.Now(), int(callCost)) {
		return fmt.Errorf("call rate limit exceeded")
	}
	return nil
}

func (crl *CallRateLimiter) getClient(r *http.Request) *rateLimitClient {
	var ip string

	// behind a reverse proxy the client ip sits proxyCount entries from
	// the end of X-Forwarded-For
	if crl.proxyCount > 0 {
		forwardIps := strings.Split(r.Header.Get("X-Forwarded-For"), ", ")
		forwardIdx := len(forwardIps) - int(crl.proxyCount)
		if forwardIdx >= 0 {
			ip = forwardIps[forwardIdx]
		}
	}
	if ip == "" {
		var err error
		ip, _, err = net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return nil
		}
	}

	crl.mutex.Lock()
	defer crl.mutex.Unlock()

	client := crl.clients[ip]
	if client == nil {
		client = &rateLimitClient{
			limiter:  rate.NewLimiter(rate.Limit(crl.rateLimit), int(crl.burstLimit)),
			lastSeen: time.Now(),
		}
		crl.clients[ip] = client

		crl.newClients.Inc()
	} else {
		client.lastSeen = time.Now()
	}
	return client
}

func (crl *CallRateLimiter) pruneClients() {
	defer utils.HandleSubroutinePanic("CallRateLimiter.pruneClients")

	for {
		time.Sleep(time.Minute)

		crl.mutex.Lock()
		for ip, client := range crl.clients {
			if time.Since(client.lastSeen) > 3*time.Minute {
				delete(crl.clients, ip)
			}
		}
		crl.mutex.Unlock()
	}
}
