package main

import (
	"fmt"

	"github.com/leadflow/backend/internal/config"
	"github.com/leadflow/backend/internal/logger"
	"github.com/leadflow/backend/internal/metrics"
	"github.com/leadflow/backend/internal/recommend"
	"github.com/leadflow/backend/internal/repository"
	"github.com/leadflow/backend/internal/service"
	"github.com/leadflow/backend/pkg/supabase"
)

// app holds everything the subcommands share
type app struct {
	cfg      *config.Config
	log      logger.Logger
	recorder metrics.Recorder
	supabase *supabase.Client

	stageRepo       repository.StageRepository
	ruleRepo        repository.AutomationRuleRepository
	entityRepo      repository.EntityRepository
	userRepo        repository.UserRepository
	idempotencyRepo repository.IdempotencyRepository

	audit      service.AuditService
	leads      service.LeadService
	stages     service.StageService
	automation service.AutomationService
	entities   service.EntityService
	users      service.UserService
	auth       service.AuthService
	export     service.ExportService
	dashboard  service.DashboardService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:     logger.ParseLevel(cfg.Logging.Level),
		Format:    cfg.Logging.Format,
		Backend:   cfg.Logging.Backend,
		AddSource: cfg.Logging.AddSource,
	})
	logger.SetDefault(log)

	recorder := metrics.New(cfg.Metrics.Enabled)
	client := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceKey)

	// Initialize repositories
	leadRepo := repository.NewLeadRepository(client)
	stageRepo := repository.NewStageRepository(client)
	ruleRepo := repository.NewAutomationRuleRepository(client)
	entityRepo := repository.NewEntityRepository(client)
	userRepo := repository.NewUserRepository(client)
	activityRepo := repository.NewLeadActivityRepository(client)
	auditRepo := repository.NewAuditLogRepository(client)

	var recommender recommend.Recommender
	if cfg.AI.Enabled {
		recommender = recommend.New(recommend.Config{
			Endpoint: cfg.AI.Endpoint,
			Model:    cfg.AI.Model,
			APIKey:   cfg.AI.APIKey,
			Timeout:  cfg.AI.Timeout,
		})
	}

	// Initialize services
	auditService := service.NewAuditService(auditRepo, recorder)

	return &app{
		cfg:             cfg,
		log:             log,
		recorder:        recorder,
		supabase:        client,
		stageRepo:       stageRepo,
		ruleRepo:        ruleRepo,
		entityRepo:      entityRepo,
		userRepo:        userRepo,
		idempotencyRepo: repository.NewIdempotencyRepository(client),
		audit:           auditService,
		leads:           service.NewLeadService(leadRepo, stageRepo, ruleRepo, entityRepo, activityRepo, auditService, recorder),
		stages:          service.NewStageService(stageRepo, leadRepo, ruleRepo, auditService),
		automation:      service.NewAutomationService(ruleRepo, stageRepo, leadRepo, recommender, auditService, recorder),
		entities:        service.NewEntityService(entityRepo, leadRepo, auditService),
		users:           service.NewUserService(userRepo, entityRepo, client, auditService),
		auth:            service.NewAuthService(client, userRepo, auditService),
		export:          service.NewExportService(leadRepo, stageRepo, entityRepo, auditService),
		dashboard:       service.NewDashboardService(leadRepo, stageRepo),
	}, nil
}
