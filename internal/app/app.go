package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tasksync/internal/config"
	"tasksync/internal/handlers"
	"tasksync/internal/logger"
	"tasksync/internal/middleware"
	"tasksync/internal/repository/task/inmemory"
	"tasksync/internal/repository/task/postgres"
	"tasksync/internal/service"
	syncer "tasksync/internal/sync"
	"tasksync/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// storage is everything the wiring needs from one repository instance:
// the task rows, the mutation queue and the sync engine's view of both.
type storage interface {
	service.TaskRepository
	service.MutationQueue
	syncer.Store
}

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	syncer    syncer.Syncer
	worker    *worker.SyncWorker
	shutdowns []func()
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: flushing logs")
		logger.Sync()
	})

	store, err := a.initStorage(ctx)
	if err != nil {
		return err
	}

	// one shared engine for handlers and the worker; nothing else is
	// allowed to construct its own
	engine := syncer.NewEngine(store, a.config.Sync)
	a.syncer = engine

	taskService := service.NewTaskService(store, store)
	taskHandler := handlers.NewTaskHandler(taskService)
	syncHandler := handlers.NewSyncHandler(engine, taskService)

	if a.config.Sync.Interval > 0 {
		a.worker = worker.NewSyncWorker(engine, &a.config.Sync.Interval)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.RateLimit(100))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", taskHandler.GetTasks)   // GET /tasks
		r.Post("/", taskHandler.PostTask)  // POST /tasks

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", taskHandler.GetTaskByID)       // GET /tasks/{id}
			r.Put("/", taskHandler.UpdateTaskByID)    // PUT /tasks/{id}
			r.Delete("/", taskHandler.DeleteTaskByID) // DELETE /tasks/{id}
		})
	})

	r.Route("/sync", func(r chi.Router) {
		r.Post("/", syncHandler.TriggerSync) // POST /sync
		r.Get("/status", syncHandler.Status) // GET /sync/status
	})

	r.Get("/health", taskHandler.HealthCheck)

	a.router = r
	a.server = &http.Server{
		Addr:    a.config.GetServerAddr(),
		Handler: r,
	}

	return nil
}

func (a *App) initStorage(ctx context.Context) (storage, error) {
	switch a.config.Repository.Type {
	case "postgres":
		st, err := postgres.New(ctx, a.config.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("initializing postgres repository: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("applying migrations: %w", err)
		}
		a.shutdowns = append(a.shutdowns, st.Close)
		return st, nil
	default:
		return inmemory.NewTaskStorage(), nil
	}
}

func (a *App) Run(ctx context.Context) error {
	if a.worker != nil {
		go a.worker.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("App: server started on " + a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("App: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("App: server shutdown failed", err)
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}

	return nil
}
