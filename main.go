package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/feeriepay/checkout/checkout"
	"github.com/feeriepay/checkout/config"
	"github.com/feeriepay/checkout/controllers"
	"github.com/feeriepay/checkout/database"
	"github.com/feeriepay/checkout/hub"
	"github.com/feeriepay/checkout/middlewares"
	"github.com/feeriepay/checkout/router"
	"github.com/feeriepay/checkout/services"
	"github.com/feeriepay/checkout/utils"
)

const (
	reapInterval    = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Error().Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLoggerWith(utils.LoggerOptions{JSON: cfg.LogJSON, Level: cfg.LogLevel})

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		utils.Error().Fatalf("Failed to connect to database: %v", err)
	}

	api, err := services.NewAPIClient(services.APIConfig{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout})
	if err != nil {
		utils.Error().Fatalf("Failed to create API client: %v", err)
	}

	journal := services.NewAttemptJournal(db)
	registry := checkout.NewRegistry(cfg.SessionTTL)
	checkoutHub := hub.NewCheckoutHub()
	signer := utils.NewCheckoutTokenSigner(cfg.TokenSecret, cfg.SessionTTL)
	rateLimiter := middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := router.SetupRouter(router.Dependencies{
		Checkout: &controllers.CheckoutController{
			Registry: registry,
			Hub:      checkoutHub,
			Signer:   signer,
			Products: api.Products,
			NewSession: controllers.NewSessionFactory(checkout.Config{
				Orders:           api.Orders,
				Payments:         api.Payments,
				Products:         api.Products,
				Journal:          journal,
				PollInterval:     cfg.PollInterval,
				CountdownSeconds: cfg.CountdownSeconds,
			}),
		},
		Health:         &controllers.HealthController{Registry: registry, Journal: journal},
		Signer:         signer,
		RateLimiter:    rateLimiter,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		utils.Info().Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		utils.Info().Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Idle sessions and rate limiter entries are dropped periodically.
	g.Go(func() error {
		ticker := time.NewTicker(reapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				sessions := registry.Reap(now)
				visitors := rateLimiter.Cleanup(now, reapInterval)
				if sessions > 0 || visitors > 0 {
					utils.Info().WithField("sessions", sessions).WithField("visitors", visitors).Debug("reaped idle state")
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		utils.Error().Errorf("Server stopped: %v", err)
	}
	registry.CloseAll()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
