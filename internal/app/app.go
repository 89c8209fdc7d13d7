package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/go_gym/internal/cache"
	"github.com/bassista/go_gym/internal/config"
	"github.com/bassista/go_gym/internal/logger"
	"github.com/bassista/go_gym/internal/metrics"
	"github.com/bassista/go_gym/internal/plan"
	"github.com/bassista/go_gym/internal/progress"
	"github.com/bassista/go_gym/internal/remote"
	"github.com/bassista/go_gym/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config   *config.Config
	Progress *progress.Repository
	Plan     *plan.Holder
	Metrics  *metrics.Manager

	BaseCtx context.Context
	Cancel  context.CancelFunc
}

func New(cfg *config.Config, repo *progress.Repository, planHolder *plan.Holder, m *metrics.Manager) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if repo == nil {
		return nil, errors.New("progress repository is nil")
	}
	if planHolder == nil {
		return nil, errors.New("plan holder is nil")
	}
	if m == nil {
		return nil, errors.New("metrics manager is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:   cfg,
		Progress: repo,
		Plan:     planHolder,
		Metrics:  m,
		BaseCtx:  ctx,
		Cancel:   cancel,
	}, nil
}

// Build wires the whole persistence stack from configuration. Metrics are
// registered on reg; the remote client is only created when every remote
// setting is present, otherwise the app runs local-only.
func Build(cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	log := logger.WithComponent("app")
	m := metrics.NewManager("go_gym", "progress", reg)

	local, err := repository.NewLocalStore(cfg.Data.FilePath)
	if err != nil {
		return nil, fmt.Errorf("init local store: %w", err)
	}

	var rs progress.RemoteStore
	if cfg.Remote.IsConfigured() {
		client, err := remote.NewClient(cfg.Remote, m)
		if err != nil {
			return nil, fmt.Errorf("init remote client: %w", err)
		}
		rs = client
		log.Infof("remote sync enabled: %s/%s@%s:%s", cfg.Remote.Owner, cfg.Remote.Repo, cfg.Remote.Branch, cfg.Remote.Path)
	}

	repo, err := progress.NewRepository(rs, local, cache.NewSession(), m)
	if err != nil {
		return nil, fmt.Errorf("init progress repository: %w", err)
	}

	planHolder, err := plan.NewHolder(cfg.Data.PlanFilePath)
	if err != nil {
		return nil, fmt.Errorf("init plan: %w", err)
	}

	return New(cfg, repo, planHolder, m)
}

func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
}

// StartWatchers starts the plan file watcher when a plan file is configured.
func (a *App) StartWatchers() error {
	if a.Config.Data.PlanFilePath == "" {
		return nil
	}
	if err := a.Plan.Watch(a.BaseCtx, a.Config.Data.PlanFilePath); err != nil {
		return fmt.Errorf("cannot start plan file watcher: %w", err)
	}
	return nil
}
