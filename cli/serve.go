package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Scalingo/sclng-repo-search/controller"
	"github.com/Scalingo/sclng-repo-search/metrics"
	"github.com/Scalingo/sclng-repo-search/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose the repository search over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	// setup github client
	// we do here and pass the client to the search client to easily improve tests with mock client
	githubClient, err := service.NewGithubClient(*cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// setup handlers and services
	searchClient := service.NewSearchClient(githubClient)
	searchController := service.NewSearchController(*cfg, searchClient, metrics.NewRecorder(registry))
	apiController := controller.NewAPIController(*cfg, searchClient, searchController)

	// setup server and define all routes
	gin.SetMode(gin.ReleaseMode)
	router := controller.NewRouter(apiController, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    ":" + cfg.API.ListenPort,
		Handler: router,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server listening on port " + cfg.API.ListenPort)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("error while starting server")
			return err
		}

		return nil
	})

	group.Go(func() error {
		// wait for interrupt signal (or server failure) to gracefully shut down the server
		<-groupCtx.Done()
		log.Info("SIGINT, SIGTERM received, will shut down server ...")

		// inform the server it has 15 seconds to finish the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// event streams only end when their subscription is closed
		if err := searchController.Close(); err != nil {
			log.WithError(err).Warning("unable to close search controller")
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Server forced to shutdown")
			return err
		}

		log.Info("Application stopped gracefully !")
		return nil
	})

	return group.Wait()
}
