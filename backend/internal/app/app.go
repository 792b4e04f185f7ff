// Package app wires configuration into a running set of components.
// Both the HTTP server and graphctl start from here.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tablegraph/backend/internal/datasets"
	"tablegraph/backend/internal/events"
	"tablegraph/backend/internal/graph"
	"tablegraph/backend/internal/memstore"
	"tablegraph/backend/internal/relations"
	"tablegraph/backend/internal/sqlstore"
	"tablegraph/backend/internal/state"
	"tablegraph/backend/internal/tagging"
	"tablegraph/backend/pkg/config"
	"tablegraph/backend/pkg/logger"
)

// App holds the wired components
type App struct {
	Config     *config.Config
	Store      state.Store
	Rules      []tagging.Rule
	Classifier *tagging.Classifier
	Generator  *relations.Generator
	Broker     *events.Broker
	Service    *datasets.Service
}

// New opens the configured store and builds every component on top of it
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	rules, err := LoadRules(cfg)
	if err != nil {
		return nil, err
	}
	classifier := tagging.NewClassifier(rules)

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	generator := relations.NewGenerator(store, store, nil)
	broker := events.NewBroker()

	return &App{
		Config:     cfg,
		Store:      store,
		Rules:      rules,
		Classifier: classifier,
		Generator:  generator,
		Broker:     broker,
		Service:    datasets.NewService(store, classifier, generator, broker, cfg.DefaultHops),
	}, nil
}

// Close releases the store
func (a *App) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}

// LoadRules reads RULES_FILE, or returns the built-in rules when unset
func LoadRules(cfg *config.Config) ([]tagging.Rule, error) {
	rules := tagging.DefaultRules()
	if cfg.RulesFile != "" {
		loaded, err := tagging.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = loaded
		logger.Get().Info("Loaded tagging rules",
			zap.String("path", cfg.RulesFile),
			zap.Int("rules", len(rules)),
		)
	}
	return rules, nil
}

// OpenStore connects to the backend named by STORE_DRIVER
func OpenStore(ctx context.Context, cfg *config.Config) (state.Store, error) {
	log := logger.Get()

	switch cfg.StoreDriver {
	case config.DriverNeo4j:
		store, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close(ctx)
			return nil, err
		}
		log.Info("Using Neo4j store", zap.String("uri", cfg.Neo4jURI))
		return store, nil

	case config.DriverSQLite:
		store, err := sqlstore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("Using SQLite store", zap.String("path", cfg.SQLitePath))
		return store, nil

	case config.DriverMemory:
		log.Warn("Using in-memory store; data is lost on exit")
		return memstore.New(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
