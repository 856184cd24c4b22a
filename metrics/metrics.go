package metrics

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	preCollectFns  []func()
	preCollectMux  sync.Mutex
	lastPreCollect time.Time
)

// AddPreCollectFn registers a callback that refreshes gauge values
// right before a scrape. Services use this to publish counters they
// track internally without updating prometheus on every change.
func AddPreCollectFn(fn func()) {
	preCollectMux.Lock()
	defer preCollectMux.Unlock()
	preCollectFns = append(preCollectFns, fn)
}

func runPreCollect() {
	preCollectMux.Lock()
	defer preCollectMux.Unlock()
	if time.Since(lastPreCollect) < time.Second {
		return
	}
	for _, fn := range preCollectFns {
		fn()
	}
	lastPreCollect = time.Now()
}

// GetMetricsHandler returns the prometheus scrape handler with the
// pre-collect hooks applied.
func GetMetricsHandler() http.Handler {
	promHandler := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runPreCollect()
		promHandler.ServeHTTP(w, r)
	})
}

// StartMetricsServer exposes the scrape handler on its own listener,
// separate from the frontend port.
func StartMetricsServer(logger logrus.FieldLogger, host string, port string) error {
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "9090"
	}

	srv := &http.Server{
		Addr:    net.JoinHostPort(host, port),
		Handler: GetMetricsHandler(),
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	go func() {
		logger.Infof("metrics server listening on %v", srv.Addr)
		if err := srv.Serve(listener); err != nil {
			logger.WithError(err).Fatal("Error serving metrics")
		}
	}()

	return nil
}
