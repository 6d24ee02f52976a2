package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kurslab/tutorium/config"
	"github.com/kurslab/tutorium/database"
	"github.com/kurslab/tutorium/internal/ai"
	"github.com/kurslab/tutorium/internal/contract"
	adminctrl "github.com/kurslab/tutorium/internal/controller/admin"
	runtimectrl "github.com/kurslab/tutorium/internal/controller/runtime"
	"github.com/kurslab/tutorium/internal/logger"
	"github.com/kurslab/tutorium/internal/model"
	"github.com/kurslab/tutorium/internal/repository"
	"github.com/kurslab/tutorium/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Tutorium Session API
// @version 1.0
// @description Session orchestration for AI-driven course tutoring: grounded Q&A, generated tests with AI grading, and homework review.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
		),

		// AI stack: Gemini first, OpenAI as fallback.
		fx.Provide(
			ai.NewGeminiProvider,
			ai.NewOpenAIProvider,
			func(gemini *ai.GeminiProvider, oa *ai.OpenAIProvider) []ai.Provider {
				return []ai.Provider{gemini, oa}
			},
			ai.NewPipeline,
			ai.NewSchemaValidator,
			func(providers []ai.Provider, chunks repository.ChunkRepository, pipeline *ai.Pipeline, cfg *config.Config) *ai.Retriever {
				return ai.NewRetriever(providers, chunks, pipeline, cfg.AI.EmbeddingDim, cfg.Retrieval.TopK, cfg.Retrieval.Threshold)
			},
		),

		fx.Provide(
			repository.NewSessionRepository,
			repository.NewTestRepository,
			repository.NewChunkRepository,
			repository.NewEventRepository,
			repository.NewHomeworkRepository,
			repository.NewKnowledgeRepository,
		),

		fx.Provide(
			service.NewStateMachine,
			service.NewEventDispatcher,
			service.NewAnswerCheckService,
			func(
				sessions repository.SessionRepository,
				tests repository.TestRepository,
				machine *service.StateMachine,
				dispatcher *service.EventDispatcher,
				retriever *ai.Retriever,
				checker service.AnswerChecker,
			) service.SessionRuntime {
				return service.NewSessionRuntime(sessions, tests, machine, dispatcher, retriever, checker)
			},
			service.NewTestService,
			service.NewHomeworkService,
			service.NewKnowledgeService,
		),

		fx.Provide(
			runtimectrl.NewRuntimeController,
			adminctrl.NewAdminTestController,
			adminctrl.NewAdminHomeworkController,
			adminctrl.NewAdminKnowledgeController,
		),

		fx.Invoke(RegisterEventHandlers),
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
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterEventHandlers wires the cross-cutting reactions to domain events.
// Handlers run in-process after the event is persisted; failures are logged
// by the dispatcher and never fail the emitting operation.
func RegisterEventHandlers(dispatcher *service.EventDispatcher) {
	dispatcher.Subscribe(contract.EventAdminReviews, func(ctx context.Context, event *model.DomainEvent) error {
		// Notification delivery (chat push) hangs off this event; until a
		// renderer registers, the review outcome is at least traceable.
		log.Info().Str("event_id", event.ID).Str("session_id", stringOrEmpty(event.SessionID)).Msg("Homework review recorded")
		return nil
	})
	dispatcher.Subscribe(contract.EventCheckCompleted, func(ctx context.Context, event *model.DomainEvent) error {
		log.Info().Str("event_id", event.ID).Str("session_id", stringOrEmpty(event.SessionID)).Msg("Test check completed")
		return nil
	})
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	runtimeCtrl *runtimectrl.RuntimeController,
	adminTestCtrl *adminctrl.AdminTestController,
	adminHomeworkCtrl *adminctrl.AdminHomeworkController,
	adminKnowledgeCtrl *adminctrl.AdminKnowledgeController,
) {
	api := router.Group("/api/v1")

	runtimeGroup := api.Group("/runtime")
	{
		runtimeGroup.POST("/message", runtimeCtrl.ProcessMessage)
		runtimeGroup.GET("/session", runtimeCtrl.GetSession)
		runtimeGroup.POST("/session/complete", runtimeCtrl.CompleteSession)
		runtimeGroup.POST("/tests/start", runtimeCtrl.StartTest)
		runtimeGroup.POST("/tests/submit", runtimeCtrl.SubmitTest)
		runtimeGroup.GET("/homework", runtimeCtrl.ListHomework)
		runtimeGroup.POST("/homework/request", runtimeCtrl.RequestHomework)
		runtimeGroup.POST("/homework/submit", runtimeCtrl.SubmitHomework)
	}

	adminGroup := api.Group("/admin")
	{
		adminGroup.POST("/tests/generate", adminTestCtrl.GenerateTests)
		adminGroup.GET("/tests/jobs/:job_id", adminTestCtrl.GetGenerationJob)
		adminGroup.GET("/tests", adminTestCtrl.ListTests)
		adminGroup.GET("/tests/:test_id", adminTestCtrl.GetTest)
		adminGroup.POST("/tests/:test_id/publish", adminTestCtrl.PublishTest)

		adminGroup.GET("/homework", adminHomeworkCtrl.ListPending)
		adminGroup.POST("/homework/:submission_id/review", adminHomeworkCtrl.Review)
		adminGroup.GET("/homework/:submission_id/analysis", adminHomeworkCtrl.Analyze)

		adminGroup.POST("/knowledge/documents", adminKnowledgeCtrl.CreateDocument)
		adminGroup.POST("/knowledge/documents/:document_id/confirm", adminKnowledgeCtrl.ConfirmUpload)
		adminGroup.GET("/knowledge/documents", adminKnowledgeCtrl.ListDocuments)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Tutorium API server starting on port %s", cfg.Server.Port)
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
		&model.LearningSession{},
		&model.Test{},
		&model.TestAttempt{},
		&model.TestSubmission{},
		&model.TestCheck{},
		&model.KnowledgeDocument{},
		&model.KnowledgeChunk{},
		&model.DomainEvent{},
		&model.HomeworkSubmission{},
		&model.HomeworkReview{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
