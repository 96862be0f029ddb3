package ports

import (
	"context"

	"kaya-scraper/internal/domain"
)

// AscentSource fetches one page of ascents for a gym at a given offset.
// Implementations handle authentication themselves.
type AscentSource interface {
	AscentsPage(ctx context.Context, gymID string, offset int) ([]domain.Ascent, error)
}

// Store persists normalized ascents. Upserts are keyed on send_id and must be
// idempotent; ExistingSendIDs scopes to a single gym and backs incremental
// sync.
type Store interface {
	ExistingSendIDs(ctx context.Context, gymID string) (map[string]struct{}, error)
	UpsertAscents(ctx context.Context, ascents []domain.Ascent) error
}

// CredentialProvider loads and persists the API token pair from the active
// backend (local env file or cloud secret store). Save must update the
// in-process copy so later Loads within the same run observe the new pair.
type CredentialProvider interface {
	Load(ctx context.Context) (domain.CredentialPair, error)
	Save(ctx context.Context, pair domain.CredentialPair) error
}
