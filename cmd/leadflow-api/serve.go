package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/leadflow/backend/internal/handlers"
	"github.com/leadflow/backend/internal/logger"
	"github.com/leadflow/backend/internal/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API server and listen for requests.`,
	RunE:  runServe,
}

var (
	port string
)

const shutdownTimeout = 10 * time.Second

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	// Override port from flag if provided
	if port != "" {
		a.cfg.Server.Port = port
	}

	a.log.Info("starting LeadFlow API server",
		logger.String("env", a.cfg.Server.Env),
		logger.String("supabase_url", a.cfg.Supabase.URL),
		logger.Bool("ai_enabled", a.cfg.AI.Enabled),
	)

	// Set Gin mode based on environment
	if a.cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.RegisterValidation()

	router, stop := newRouter(a)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", logger.String("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// newRouter wires middleware and routes. The returned func stops the rate
// limiter janitors.
func newRouter(a *app) (*gin.Engine, func()) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(a.auth)
	leadHandler := handlers.NewLeadHandler(a.leads)
	stageHandler := handlers.NewStageHandler(a.stages)
	automationHandler := handlers.NewAutomationHandler(a.automation)
	adminHandler := handlers.NewAdminHandler(a.entities, a.users, a.audit)
	exportHandler := handlers.NewExportHandler(a.export, a.dashboard)

	apiLimiter := middleware.NewRateLimiter(300, time.Minute, "api")
	authLimiter := middleware.NewRateLimiter(10, time.Minute, "auth")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.log, a.recorder))
	router.Use(middleware.SecurityHeaders(a.cfg.Server.IsProduction()))
	router.Use(middleware.CORS(a.cfg.CORS.AllowedOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"env":    a.cfg.Server.Env,
		})
	})
	if a.cfg.Metrics.Enabled {
		router.GET(a.cfg.Metrics.Path, gin.WrapH(a.recorder.Handler()))
	}

	requireAuth := middleware.Auth(a.supabase, a.userRepo)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimitWith(authLimiter))
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/signup", authHandler.Signup)
			auth.GET("/entities", adminHandler.ListEntities)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		// Protected routes
		protected := v1.Group("")
		protected.Use(requireAuth)
		protected.Use(middleware.RateLimitWith(apiLimiter))
		protected.Use(middleware.Idempotency(a.idempotencyRepo))
		{
			// Lead routes
			protected.GET("/leads", leadHandler.ListLeads)
			protected.POST("/leads", leadHandler.CreateLead)
			protected.GET("/leads/sectors", leadHandler.ListSectors)
			protected.GET("/leads/export", exportHandler.ExportLeads)
			protected.POST("/leads/bulk", leadHandler.BulkUpdateLeads)
			protected.GET("/leads/:id", leadHandler.GetLead)
			protected.PATCH("/leads/:id", leadHandler.UpdateLead)
			protected.DELETE("/leads/:id", leadHandler.DeleteLead)
			protected.PUT("/leads/:id/stage", leadHandler.MoveLead)
			protected.GET("/leads/:id/timeline", leadHandler.GetTimeline)
			protected.GET("/leads/:id/projection", automationHandler.GetProjection)
			protected.GET("/leads/:id/activities", leadHandler.ListActivities)
			protected.POST("/leads/:id/activities", leadHandler.AddActivity)

			// Stage routes
			protected.GET("/stages", stageHandler.ListStages)

			// Automation routes
			protected.GET("/automation/rules", automationHandler.ListRules)
			protected.GET("/automation/forecast", automationHandler.GetForecast)
			protected.POST("/automation/recommendations", automationHandler.Recommend)

			// Dashboard and reference data
			protected.GET("/dashboard", exportHandler.GetSummary)
			protected.GET("/entities", adminHandler.ListEntities)
		}

		// Admin routes
		admin := protected.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/stages", stageHandler.CreateStage)
			admin.PUT("/stages/order", stageHandler.ReorderStages)
			admin.PUT("/stages/:id/name", stageHandler.RenameStage)
			admin.PATCH("/stages/:id", stageHandler.UpdateStageProperty)
			admin.DELETE("/stages/:id", stageHandler.DeleteStage)

			admin.PUT("/automation/rules/:stageId", automationHandler.SaveRule)

			admin.POST("/admin/entities", adminHandler.CreateEntity)
			admin.PUT("/admin/entities/:id", adminHandler.UpdateEntity)
			admin.DELETE("/admin/entities/:id", adminHandler.DeleteEntity)

			admin.GET("/admin/users", adminHandler.ListUsers)
			admin.POST("/admin/users", adminHandler.CreateUser)
			admin.PATCH("/admin/users/:id", adminHandler.UpdateUser)
			admin.POST("/admin/users/:id/approve", adminHandler.ApproveUser)
			admin.POST("/admin/users/:id/reject", adminHandler.RejectUser)
			admin.DELETE("/admin/users/:id", adminHandler.DeleteUser)

			admin.GET("/admin/audit-logs", adminHandler.ListAuditLogs)
		}
	}

	return router, func() {
		apiLimiter.Stop()
		authLimiter.Stop()
	}
}
