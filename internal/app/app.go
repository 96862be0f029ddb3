package app

import (
	"context"
	"log/slog"

	"kaya-scraper/internal/adapter/awssecrets"
	"kaya-scraper/internal/adapter/envfile"
	"kaya-scraper/internal/adapter/kaya"
	"kaya-scraper/internal/adapter/sqlstore"
	"kaya-scraper/internal/config"
	"kaya-scraper/internal/domain"
	"kaya-scraper/internal/ports"
	"kaya-scraper/internal/usecase"
)

// App wires adapters and use cases.
type App struct {
	log   *slog.Logger
	cfg   config.Config
	kaya  *kaya.Client
	store *sqlstore.Client
	uc    *usecase.SyncUseCase
}

// New builds the app. forceCloud switches the credential backend to the
// cloud secret store even outside Lambda.
func New(ctx context.Context, log *slog.Logger, cfg config.Config, forceCloud bool) (*App, error) {
	var creds ports.CredentialProvider
	if config.UseCloudSecrets(forceCloud) {
		p, err := awssecrets.New(ctx, cfg.Secrets.SecretName)
		if err != nil {
			return nil, err
		}
		creds = p
		log.Debug("using cloud secret backend")
	} else {
		creds = envfile.New(cfg.Secrets.EnvFile)
		log.Debug("using local env file backend", slog.String("path", cfg.Secrets.EnvFile))
	}

	client := kaya.NewClient(cfg.Kaya.BaseURL, creds, log)
	store, err := sqlstore.NewClient(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.Store.Schema, log)
	if err != nil {
		return nil, err
	}

	uc := &usecase.SyncUseCase{
		Log:    log,
		Source: client,
		Store:  store,
	}
	return &App{log: log, cfg: cfg, kaya: client, store: store, uc: uc}, nil
}

// SyncGym syncs a single gym.
func (a *App) SyncGym(ctx context.Context, gymID string, opts usecase.SyncOptions) (usecase.SyncResult, error) {
	return a.uc.Sync(ctx, gymID, opts)
}

// SyncAll syncs every gym in the configured roster and returns the per-gym
// outcome map.
func (a *App) SyncAll(ctx context.Context, opts usecase.SyncOptions) (map[string]string, error) {
	gyms, err := config.LoadGyms(a.cfg.Gyms.ConfigPath)
	if err != nil {
		return nil, err
	}
	return a.uc.SyncAll(ctx, gyms, opts), nil
}

// SearchGyms looks up gyms by a free-text term.
func (a *App) SearchGyms(ctx context.Context, term string) ([]domain.Gym, error) {
	return a.kaya.SearchGyms(ctx, term)
}

// Close releases the store connection.
func (a *App) Close() error { return a.store.Close() }
