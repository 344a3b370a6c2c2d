package timezone

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
)

// Repository persists user time zone preferences. Get returns an empty zone
// and no error when the user has none.
type Repository interface {
	Get(ctx context.Context, userID snowflake.ID) (string, error)
	Set(ctx context.Context, userID snowflake.ID, zone string) error
}

type Preferences struct {
	repository Repository
	normalizer *Normalizer
}

func NewPreferences(repository Repository, normalizer *Normalizer) *Preferences {
	return &Preferences{
		repository: repository,
		normalizer: normalizer,
	}
}

// Get returns the user's zone or ErrNotSet.
func (p *Preferences) Get(ctx context.Context, userID snowflake.ID) (string, error) {
	zone, err := p.repository.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load time zone: %w", err)
	}
	if zone == "" {
		return "", ErrNotSet
	}
	return zone, nil
}

// Set stores zone after checking that it loads.
func (p *Preferences) Set(ctx context.Context, userID snowflake.ID, zone string) error {
	if err := p.normalizer.Validate(zone); err != nil {
		return err
	}
	if err := p.repository.Set(ctx, userID, zone); err != nil {
		return fmt.Errorf("failed to save time zone: %w", err)
	}
	return nil
}
