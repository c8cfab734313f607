package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/taskflowhq/taskflow/internal/canvas"
	"github.com/taskflowhq/taskflow/internal/config"
	"github.com/taskflowhq/taskflow/internal/handler"
	"github.com/taskflowhq/taskflow/internal/notion"
	"github.com/taskflowhq/taskflow/internal/openai"
	"github.com/taskflowhq/taskflow/internal/priority"
	"github.com/taskflowhq/taskflow/internal/repo"
	"github.com/taskflowhq/taskflow/internal/scheduler"
	"github.com/taskflowhq/taskflow/internal/service"
	"github.com/taskflowhq/taskflow/internal/syncer"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to Database.")
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal("Failed to ping the Database.")
	}
	logger.Info("Successfully connected to the Database!")

	taskRepo := repo.NewTaskRepo(pool)

	var analyzer priority.Analyzer
	if cfg.OpenAIAPIKey != "" {
		analyzer = openai.NewClient(cfg.OpenAIAPIKey)
	}
	engine := priority.NewEngine(analyzer, logger)

	canvasAdapter := canvas.NewAdapter(cfg.CanvasBaseURL, cfg.CanvasToken)
	notionAdapter := notion.NewAdapter(cfg.NotionToken, cfg.NotionDatabaseID, taskRepo, logger)
	syncService := syncer.NewService(taskRepo, canvasAdapter, engine, logger)
	taskService := service.NewTaskService(taskRepo, engine, logger)

	taskHandler := handler.NewTaskHandler(taskService, logger)
	integrationHandler := handler.NewIntegrationHandler(canvasAdapter, notionAdapter, syncService, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)
			r.Post("/prioritize", taskHandler.Prioritize)
			r.Get("/{id}", taskHandler.Get)
			r.Patch("/{id}", taskHandler.Update)
			r.Delete("/{id}", taskHandler.Delete)
		})
		r.Route("/integrations", func(r chi.Router) {
			r.Get("/canvas/courses", integrationHandler.ListCanvasCourses)
			r.Post("/canvas/sync", integrationHandler.CanvasSync)
			r.Post("/notion/push", integrationHandler.NotionPush)
			r.Post("/notion/pull", integrationHandler.NotionPull)
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched = scheduler.New(syncService, logger, cfg.SyncInterval)
		sched.Start(ctx)
	} else {
		logger.Info("Sync scheduler is disabled")
	}

	srv := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Server started at ", zap.String("port", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed: ", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Shutdown error: ", zap.Error(err))
	}
	logger.Info("Server stopped succsessfully!")
}
