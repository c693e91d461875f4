// Package server exposes the forms, catalog, suggestions and fund balances
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/budgetbox/budgetbox/internal/buildinfo"
	"github.com/budgetbox/budgetbox/internal/catalog"
	"github.com/budgetbox/budgetbox/internal/config"
	"github.com/budgetbox/budgetbox/internal/funds"
	"github.com/budgetbox/budgetbox/internal/model"
	"github.com/budgetbox/budgetbox/internal/submission"
	"github.com/budgetbox/budgetbox/internal/suggest"
)

// Categories serves the category tree.
type Categories interface {
	Get(id int) (model.Category, bool)
	Descriptors(f catalog.Filter) []model.Descriptor
}

// Suggester proposes categories.
type Suggester interface {
	Suggest(description string) (suggest.Suggestion, bool, error)
}

// Balances reports fund balances.
type Balances interface {
	Balances() ([]funds.Balance, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Submissions *submission.Service
	Categories  Categories
	Suggest     Suggester
	Funds       Balances
}

// Server wires the routes onto a gin engine.
type Server struct {
	engine *gin.Engine
	deps   Deps
	log    zerolog.Logger
}

// New builds the engine with logging, recovery, CORS and CSRF middleware.
func New(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	engine := gin.New()
	engine.Use(requestLogger(log), recovery(log))

	if len(cfg.Server.AllowedOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type", CSRFHeader},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	engine.Use(csrf())

	s := &Server{engine: engine, deps: deps, log: log}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": buildinfo.String()})
	})
	api.GET("/categories", s.listCategories)
	api.GET("/suggest", s.suggest)
	api.GET("/funds", s.listFunds)

	tx := api.Group("/transactions")
	tx.GET("/:id/:kind/form", s.getForm)
	tx.POST("/:id/:kind", s.submit)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}
