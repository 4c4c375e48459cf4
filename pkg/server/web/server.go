// Package web provides the plumbing for smtpsink's RESTful API and monitor
// WebSocket.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/smtpsink/smtpsink/pkg/config"
	"github.com/smtpsink/smtpsink/pkg/msghub"
	"github.com/smtpsink/smtpsink/pkg/storage"
)

var (
	// Router is shared with the rest package; it sends incoming requests to
	// the correct handler function.
	Router = mux.NewRouter()

	rootConfig *config.Root
	msgHub     *msghub.Hub
	store      storage.Store
	server     *http.Server
	listener   net.Listener
)

// Initialize sets up things for unit tests or the Start() method.
func Initialize(conf *config.Root, s storage.Store, mh *msghub.Hub) {
	rootConfig = conf
	store = s
	msgHub = mh
	Router.NotFoundHandler = noMatchHandler(http.StatusNotFound, "No route matches URI path")
	Router.MethodNotAllowedHandler = noMatchHandler(http.StatusMethodNotAllowed, "Method not allowed for URI path")
}

// Start begins listening for HTTP requests, blocking until the context is
// canceled.
func Start(ctx context.Context) {
	corsWrapper := cors.New(cors.Options{
		AllowedOrigins: rootConfig.Web.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete},
	})
	server = &http.Server{
		Addr:         rootConfig.Web.Addr,
		Handler:      corsWrapper.Handler(requestLoggingWrapper(Router)),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Not using ListenAndServe because it lacks a way to close the listener.
	var err error
	listener, err = net.Listen("tcp", server.Addr)
	if err != nil {
		log.Error().Str("module", "web").Err(err).Msg("HTTP failed to start TCP listener")
		return
	}
	log.Info().Str("module", "web").Str("addr", server.Addr).Msg("HTTP listening")
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Str("module", "web").Err(err).Msg("HTTP shutdown failed")
		}
	}()
	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		log.Error().Str("module", "web").Err(err).Msg("HTTP server failed")
	}
}
