package main

import (
	"context"
	"fmt"
	"io"

	httpadapter "github.com/PabloGalante/farum-checkin/internal/adapters/http"
	"github.com/PabloGalante/farum-checkin/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/farum-checkin/internal/adapters/storage/firestore"
	"github.com/PabloGalante/farum-checkin/internal/adapters/storage/jsonfile"
	memstore "github.com/PabloGalante/farum-checkin/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/farum-checkin/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/farum-checkin/internal/app/journal"
	"github.com/PabloGalante/farum-checkin/internal/app/scheduler"
	"github.com/PabloGalante/farum-checkin/internal/app/stats"
	"github.com/PabloGalante/farum-checkin/internal/app/survey"
	"github.com/PabloGalante/farum-checkin/internal/config"
	"github.com/PabloGalante/farum-checkin/internal/domain"
	"github.com/PabloGalante/farum-checkin/internal/observability"
)

const outboxLimit = 100

// app holds the wired components shared by the commands.
type app struct {
	users     domain.UserStore
	outbox    *memstore.Outbox
	hub       *httpadapter.Hub
	engine    *survey.Engine
	stats     *stats.Service
	journal   *journal.Service
	scheduler *scheduler.Scheduler

	closers []io.Closer
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := observability.WithFields("component", "bootstrap")

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &app{}

	// Storage: memory, jsonfile, sqlite or firestore
	switch cfg.StorageBackend {
	case config.BackendFirestore:
		log.Info("using firestore storage", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("initializing firestore store: %w", err)
		}
		a.users = fsStore
		a.closers = append(a.closers, fsStore)
	case config.BackendSQLite:
		log.Info("using sqlite storage", "path", cfg.SQLitePath)
		sqlStore, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("initializing sqlite store: %w", err)
		}
		a.users = sqlStore
		a.closers = append(a.closers, sqlStore)
	case config.BackendJSONFile:
		log.Info("using json file storage", "path", cfg.DataFile)
		a.users = jsonfile.NewStore(cfg.DataFile)
	default:
		log.Info("using in-memory storage")
		a.users = memstore.NewUserStore()
	}

	catalog, err := survey.DefaultCatalog()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.outbox = memstore.NewOutbox(outboxLimit)
	a.hub = httpadapter.NewHub(a.outbox)
	a.stats = stats.NewService(a.users, loc)
	a.journal = journal.NewService(a.users)

	opts := []survey.Option{survey.WithStats(a.stats)}
	if cfg.ReflectionEnabled {
		llmClient, err := newLLMClient(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, survey.WithReflection(llmClient))
	}

	sessions := memstore.NewSessionStore(cfg.SessionShards)
	a.engine = survey.NewEngine(catalog, sessions, a.users, a.hub, opts...)

	a.scheduler = scheduler.New(a.users, a.engine, scheduler.Config{
		Interval:    cfg.SchedulerInterval,
		RunOnStart:  cfg.SchedulerRunOnStart,
		Concurrency: cfg.SchedulerConcurrency,
		Location:    loc,
	})

	return a, nil
}

func newLLMClient(ctx context.Context, cfg *config.Config) (domain.LLMClient, error) {
	log := observability.Logger()
	if cfg.MockLLM() {
		log.Info("using mock LLM client")
		return llm.NewMockLLM(), nil
	}

	log.Info("using Vertex LLM client", "model", cfg.ModelName)
	client, err := llm.NewVertexClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
	if err != nil {
		return nil, fmt.Errorf("initializing Vertex LLM client: %w", err)
	}
	return client, nil
}
