package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/rainbowsvgs/spectra/clients/execution"
	"github.com/rainbowsvgs/spectra/db"
	"github.com/rainbowsvgs/spectra/handlers"
	"github.com/rainbowsvgs/spectra/handlers/api"
	"github.com/rainbowsvgs/spectra/handlers/middleware"
	"github.com/rainbowsvgs/spectra/metrics"
	"github.com/rainbowsvgs/spectra/services"
	"github.com/rainbowsvgs/spectra/static"
	"github.com/rainbowsvgs/spectra/types"
	"github.com/rainbowsvgs/spectra/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file, if empty string defaults will be used")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, *configPath)
	if err != nil {
		logrus.Fatalf("error reading config file: %v", err)
	}
	utils.Config = cfg
	logger := utils.InitLogger()

	logger.WithFields(logrus.Fields{
		"config":  *configPath,
		"version": utils.BuildVersion,
		"release": utils.BuildRelease,
	}).Printf("starting")

	db.MustInitDB()
	err = db.ApplyEmbeddedDbSchema(-2)
	if err != nil {
		logger.Fatalf("error initializing db schema: %v", err)
	}

	pool := execution.NewPool(ctx, &execution.PoolConfig{
		ChainId:          cfg.Chain.Config.ChainId,
		HeadPollInterval: cfg.ExecutionApi.HeadPollInterval,
	}, logger.WithField("module", "execution"))

	endpoints := cfg.ExecutionApi.Endpoints
	if len(endpoints) == 0 && cfg.ExecutionApi.Endpoint != "" {
		endpoints = []types.EndpointConfig{
			{
				Url:  cfg.ExecutionApi.Endpoint,
				Name: "default",
			},
		}
	}
	if len(endpoints) == 0 {
		logger.Fatalf("no execution endpoints configured")
	}
	for _, endpoint := range endpoints {
		pool.AddEndpoint(&execution.ClientConfig{
			URL:      endpoint.Url,
			Name:     endpoint.Name,
			Priority: endpoint.Priority,
			Headers:  endpoint.Headers,
		})
	}

	var webserver *http.Server
	if cfg.Frontend.Enabled {
		websrv, err := startWebserver(logger)
		if err != nil {
			logger.Fatalf("error starting webserver: %v", err)
		}
		webserver = websrv

		err = services.StartFrontendCache()
		if err != nil {
			logger.Fatalf("error starting frontend cache service: %v", err)
		}
	}

	if cfg.Metrics.Enabled && !cfg.Metrics.Public {
		err = metrics.StartMetricsServer(logger.WithField("module", "metrics"), cfg.Metrics.Host, cfg.Metrics.Port)
		if err != nil {
			logger.Fatalf("error starting metrics server: %v", err)
		}
	}

	err = services.StartMarketService(ctx, logger, pool)
	if err != nil {
		logger.Fatalf("error starting market service: %v", err)
	}

	err = services.StartTxService(logger, services.GlobalMarketService)
	if err != nil {
		logger.Fatalf("error starting tx service: %v", err)
	}

	if cfg.RateLimit.Enabled {
		err = services.StartCallRateLimiter(cfg.RateLimit.ProxyCount, cfg.RateLimit.Rate, cfg.RateLimit.Burst)
		if err != nil {
			logger.Fatalf("error starting call rate limiter: %v", err)
		}
	}

	if webserver != nil {
		startFrontend(webserver)
	}

	utils.WaitForCtrlC()
	logger.Println("exiting...")
	db.MustCloseDB()
}

func startWebserver(logger logrus.FieldLogger) (*http.Server, error) {
	// build a early router that serves the settings page only
	// the full frontend relies on the market service and is served by the main router later
	router := mux.NewRouter()

	router.HandleFunc("/", handlers.Settings).Methods("GET")

	fileSys := http.FS(static.Files)
	router.PathPrefix("/").Handler(handlers.CustomFileServer(http.FileServer(fileSys), fileSys, handlers.NotFound))

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseHandler(router)

	if utils.Config.Frontend.HttpWriteTimeout == 0 {
		utils.Config.Frontend.HttpWriteTimeout = time.Second * 15
	}
	if utils.Config.Frontend.HttpReadTimeout == 0 {
		utils.Config.Frontend.HttpReadTimeout = time.Second * 15
	}
	if utils.Config.Frontend.HttpIdleTimeout == 0 {
		utils.Config.Frontend.HttpIdleTimeout = time.Second * 60
	}
	srv := &http.Server{
		Addr:         utils.Config.Server.Host + ":" + utils.Config.Server.Port,
		WriteTimeout: utils.Config.Frontend.HttpWriteTimeout,
		ReadTimeout:  utils.Config.Frontend.HttpReadTimeout,
		IdleTimeout:  utils.Config.Frontend.HttpIdleTimeout,
		Handler:      n,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}

	logger.Printf("http server listening on %v", srv.Addr)
	go func() {
		if err := srv.Serve(listener); err != nil {
			logger.WithError(err).Fatal("Error serving frontend")
		}
	}()

	return srv, nil
}

func startFrontend(webserver *http.Server) {
	router := mux.NewRouter()

	router.HandleFunc("/", handlers.Index).Methods("GET")
	router.HandleFunc("/claim", handlers.Index).Methods("GET")
	router.HandleFunc("/market", handlers.Market).Methods("GET")
	router.HandleFunc("/collection/{address}", handlers.Collection).Methods("GET")
	router.HandleFunc("/settings", handlers.Settings).Methods("GET", "POST")

	if utils.Config.Api.Enabled {
		tokenAuth := middleware.NewTokenAuthMiddleware()

		apiRouter := router.PathPrefix("/api/v1").Subrouter()
		apiRouter.Use(middleware.CorsMiddleware)
		apiRouter.Use(tokenAuth.Middleware)
		if utils.Config.RateLimit.Enabled {
			rateLimiter := middleware.NewRateLimitMiddleware()
			apiRouter.Use(rateLimiter.Middleware)
		}
		apiRouter.HandleFunc("/claim", api.APIClaim).Methods("GET", "OPTIONS")
		apiRouter.HandleFunc("/market", api.APIMarket).Methods("GET", "OPTIONS")
		apiRouter.HandleFunc("/collection/{address}", api.APICollection).Methods("GET", "OPTIONS")
		apiRouter.HandleFunc("/activity", api.APIActivity).Methods("GET", "OPTIONS")
		apiRouter.HandleFunc("/tx/{action}", api.APITx).Methods("POST", "OPTIONS")
	}

	if utils.Config.Frontend.Pprof {
		// add pprof handler
		router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
		router.Handle("/debug/metrics", metrics.GetMetricsHandler())
	}

	if utils.Config.Metrics.Enabled && utils.Config.Metrics.Public {
		router.Handle("/metrics", metrics.GetMetricsHandler())
	}

	if utils.Config.Frontend.Debug {
		// serve files from local directory when debugging, instead of from go embed file
		templatesHandler := http.FileServer(http.Dir("templates"))
		router.PathPrefix("/templates").Handler(http.StripPrefix("/templates/", templatesHandler))

		cssHandler := http.FileServer(http.Dir("static/css"))
		router.PathPrefix("/css").Handler(http.StripPrefix("/css/", cssHandler))

		jsHandler := http.FileServer(http.Dir("static/js"))
		router.PathPrefix("/js").Handler(http.StripPrefix("/js/", jsHandler))
	}

	// serve static files from go embed
	fileSys := http.FS(static.Files)
	router.PathPrefix("/").Handler(handlers.CustomFileServer(http.FileServer(fileSys), fileSys, handlers.NotFound))

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseHandler(router)

	webserver.Handler = n
}
