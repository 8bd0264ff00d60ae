package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/khangtgr/assessly/config"
	"github.com/khangtgr/assessly/database"
	_ "github.com/khangtgr/assessly/docs" // Swagger docs - auto-generated
	adminctrl "github.com/khangtgr/assessly/internal/controller/admin"
	candidatectrl "github.com/khangtgr/assessly/internal/controller/candidate"
	"github.com/khangtgr/assessly/internal/logger"
	"github.com/khangtgr/assessly/internal/model"
	"github.com/khangtgr/assessly/internal/repository"
	"github.com/khangtgr/assessly/internal/service"
)

// @title Assessly Recruiting Assessment API
// @version 1.0
// @description Blueprint authoring, timed test delivery and multi-criteria candidate scoring.
// @contact.name API Support
// @contact.email support@example.com
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		// Core application components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
		),

		// Repositories layer
		fx.Provide(
			repository.NewBlueprintRepository,
			repository.NewAttemptRepository,
			repository.NewEvaluationRepository,
		),

		// Services layer
		fx.Provide(
			service.NewBlueprintService,
			service.NewBlueprintGeneratorService,
			service.NewAttemptService,
			service.NewEvaluationService,
		),

		// API controllers layer
		fx.Provide(
			adminctrl.NewBlueprintController,
			adminctrl.NewEvaluationController,
			candidatectrl.NewAttemptController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	blueprintCtrl *adminctrl.BlueprintController,
	evaluationCtrl *adminctrl.EvaluationController,
	attemptCtrl *candidatectrl.AttemptController,
) {
	// Admin routes (prefixed with /api/v1/admin)
	adminAPI := router.Group("/api/v1/admin")
	{
		blueprints := adminAPI.Group("/blueprints")
		blueprints.POST("", blueprintCtrl.CreateBlueprint)
		blueprints.GET("", blueprintCtrl.GetAllBlueprints)
		blueprints.POST("/generate", blueprintCtrl.GenerateBlueprint)
		blueprints.GET("/:id", blueprintCtrl.GetBlueprint)
		blueprints.PATCH("/:id", blueprintCtrl.UpdateBlueprint)
		blueprints.POST("/:id/activate", blueprintCtrl.ActivateBlueprint)

		evaluations := adminAPI.Group("/evaluations")
		evaluations.POST("", evaluationCtrl.EvaluateProfiles)
		evaluations.GET("/:batch_id", evaluationCtrl.GetBatch)

		adminAPI.GET("/attempts/:attempt_id/evaluation", evaluationCtrl.GetAttemptEvaluation)
	}

	// Candidate routes (prefixed with /api/v1)
	candidateAPI := router.Group("/api/v1")
	{
		attempts := candidateAPI.Group("/attempts")
		attempts.POST("", attemptCtrl.StartAttempt)
		attempts.GET("/:id", attemptCtrl.GetAttempt)
		attempts.GET("/:id/questions", attemptCtrl.GetQuestions)
		attempts.PUT("/:id/responses/:item_id", attemptCtrl.SaveResponse)
		attempts.POST("/:id/events", attemptCtrl.RecordIntegrityEvent)
		attempts.POST("/:id/submit", attemptCtrl.SubmitAttempt)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Assessment API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Blueprint{},
		&model.Section{},
		&model.Item{},
		&model.Attempt{},
		&model.IntegrityEvent{},
		&model.Evaluation{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
