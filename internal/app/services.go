package app

import (
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/clients/redisx"
	"github.com/flowsmith/flowsmith-backend/internal/engine"
	"github.com/flowsmith/flowsmith-backend/internal/integrations"
	"github.com/flowsmith/flowsmith-backend/internal/jobs"
	"github.com/flowsmith/flowsmith-backend/internal/jobs/runtime"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/scopetag"
	"github.com/flowsmith/flowsmith-backend/internal/services"
	"github.com/flowsmith/flowsmith-backend/internal/temporalx"
)

type Services struct {
	Auth        services.AuthService
	Recipe      services.RecipeService
	Step        services.StepService
	Block       services.BlockService
	Integration services.IntegrationService
	Account     services.AccountService
	Run         services.RunService
	Intake      services.IntakeService
	Export      services.ExportService

	Registry  *integrations.Registry
	Engine    *engine.Engine
	Executor  *engine.JobExecutor
	JobWorker *jobs.Worker
	RunBus    redisx.RunBus
	RunFeed   *redisx.RunFeed
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	r Repos,
	rdb *goredis.Client,
	tc temporalsdkclient.Client,
) (Services, error) {
	log.Info("Wiring services...")

	registry := integrations.NewRegistry()
	if err := integrations.RegisterBuiltins(registry, log, &http.Client{Timeout: 30 * time.Second}); err != nil {
		return Services{}, err
	}

	chain := scopetag.NewChain(log, cfg.UpgradeURL)
	cache := scopetag.NewCache(log, chain, rdb, cfg.ScopeTagTTL)

	var runBus redisx.RunBus
	if rdb != nil {
		bus, err := redisx.NewRunBus(log, rdb)
		if err != nil {
			return Services{}, err
		}
		runBus = bus
	}
	runFeed := redisx.NewRunFeed()

	executor := engine.NewJobExecutor(log, registry, r.RecipeRun, r.ConnectedAccount, runBus)

	// Temporal owns background actions when configured; otherwise the
	// in-process worker does.
	var dispatcher engine.BackgroundDispatcher
	var jobWorker *jobs.Worker
	if tc != nil {
		td, err := temporalx.NewDispatcher(log, tc)
		if err != nil {
			return Services{}, err
		}
		dispatcher = td
	} else {
		jobRegistry := runtime.NewRegistry()
		if err := jobRegistry.Register(jobs.NewActionExecuteHandler(executor)); err != nil {
			return Services{}, err
		}
		jobWorker = jobs.NewWorker(log, jobRegistry, cfg.JobQueueSize)
		dispatcher = jobs.NewLocalDispatcher(jobWorker)
	}

	eng := engine.New(log, registry, r.RecipeRun, r.ConnectedAccount, dispatcher, otel.Tracer("flowsmith/engine"))

	auth := services.NewAuthService(db, log, r.User, r.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	recipe := services.NewRecipeService(db, log, r.Recipe, registry)
	step := services.NewStepService(db, log, r.Recipe, r.RecipeStep, registry)
	block := services.NewBlockService(db, log, r.Recipe, r.RecipeBlock)
	integration := services.NewIntegrationService(log, registry, cache, r.ConnectedAccount, services.SitePlan{
		Plan:    cfg.LicensePlan,
		Plugins: cfg.Plugins,
	})
	account := services.NewAccountService(log, r.ConnectedAccount, registry, cache)
	run := services.NewRunService(log, r.Recipe, r.RecipeRun)
	intake := services.NewIntakeService(db, log, r.Recipe, registry, eng, runBus)
	export := services.NewExportService(db, log, r.Recipe, r.RecipeStep, r.RecipeBlock)

	return Services{
		Auth:        auth,
		Recipe:      recipe,
		Step:        step,
		Block:       block,
		Integration: integration,
		Account:     account,
		Run:         run,
		Intake:      intake,
		Export:      export,
		Registry:    registry,
		Engine:      eng,
		Executor:    executor,
		JobWorker:   jobWorker,
		RunBus:      runBus,
		RunFeed:     runFeed,
	}, nil
}
