package main

import (
	"context"
	"fmt"
	"log"

	common_api "demantive/internal/common/api"
	"demantive/internal/config"
	"demantive/internal/connectors"
	"demantive/internal/database"
	"demantive/internal/features/audit"
	"demantive/internal/features/connection"
	"demantive/internal/features/dashboard"
	"demantive/internal/features/organization"
	"demantive/internal/features/program"
	"demantive/internal/features/record"
	"demantive/internal/features/sync"
	"demantive/internal/features/system"
	"demantive/internal/logger"
	"demantive/internal/middleware"
	"demantive/internal/vault"
	"demantive/pkg/utils"

	_ "demantive/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware(cfg.AppBaseURL))

	return app
}

// AsRoute tags the constructor so Fx adds it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes calls Setup() on every member of the "routes" group.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for i, route := range routes {
		log.Printf("Setting up route %d: %T\n", i+1, route)
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer starts Fiber in a goroutine and shuts it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes creates the staging indexes before the server accepts traffic.
// The running-sync index is what rejects concurrent runs, so a failure here aborts startup.
func InitializeIndexes(lc fx.Lifecycle, rawRepo sync.RawObjectRepository, runRepo sync.SyncRunRepository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rawRepo.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("failed to ensure raw object indexes: %w", err)
			}
			if err := runRepo.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("failed to ensure sync run indexes: %w", err)
			}
			return nil
		},
	})
}

// StartScheduler runs periodic syncs when SYNC_SCHEDULE is configured.
func StartScheduler(lc fx.Lifecycle, scheduler *sync.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start()
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		},
	})
}

func asMembershipChecker(s organization.OrganizationService) middleware.MembershipChecker {
	return s
}

func asMembershipGuard(s organization.OrganizationService) connection.MembershipGuard {
	return s
}

func asTokenCipher(v *vault.Vault) connection.TokenCipher {
	return v
}

// @title           Demantive API
// @version         1.0
// @description     Multi-tenant CRM ingestion, normalization and program mapping.

// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Databases
			database.NewDatabase,
			database.NewPostgres,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Token encryption and CRM clients
			vault.NewFromConfig,
			asTokenCipher,
			connectors.NewClientFactory,
			connection.NewOAuthProviders,
			connection.NewStateSigner,

			// Initialize Repository
			audit.NewAuditRepository,
			organization.NewOrganizationRepository,
			connection.NewConnectionRepository,
			record.NewRecordRepository,
			sync.NewRawObjectRepository,
			sync.NewSyncRunRepository,
			program.NewProgramRepository,
			dashboard.NewDashboardRepository,

			// Initialize Service
			audit.NewAuditService,
			organization.NewOrganizationService,
			asMembershipChecker,
			asMembershipGuard,
			connection.NewConnectionService,
			record.NewRecordService,
			sync.NewSyncService,
			sync.NewScheduler,
			program.NewProgramService,
			dashboard.NewDashboardService,

			// Initialize Controller
			audit.NewAuditController,
			organization.NewOrganizationController,
			connection.NewConnectionController,
			record.NewRecordController,
			sync.NewSyncController,
			program.NewProgramController,
			dashboard.NewDashboardController,

			// Routes
			AsRoute(organization.NewOrganizationApi),
			AsRoute(connection.NewConnectionApi),
			AsRoute(sync.NewSyncApi),
			AsRoute(record.NewRecordApi),
			AsRoute(program.NewProgramApi),
			AsRoute(dashboard.NewDashboardApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) {
				utils.SetSecret(cfg.JWTSecret)
			},
			InitializeIndexes,
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartScheduler,
		),
	)

	app.Run()
}
