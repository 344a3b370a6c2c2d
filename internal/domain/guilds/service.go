package guilds

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/domain/errs"
)

// MaxRoles bounds each role list.
const MaxRoles = 25

// Repository persists settings. Get returns an *errs.NotFoundError for
// guilds that never saved any.
type Repository interface {
	Get(ctx context.Context, guildID snowflake.ID) (*Settings, error)
	Upsert(ctx context.Context, settings *Settings) error
}

type Service struct {
	repository Repository
	clock      clock.Clock
}

func NewService(repository Repository, clk clock.Clock) *Service {
	return &Service{repository: repository, clock: clk}
}

// Get returns the guild's settings, the defaults when none are stored.
func (s *Service) Get(ctx context.Context, guildID snowflake.ID) (Settings, error) {
	stored, err := s.repository.Get(ctx, guildID)
	if err != nil {
		if errs.IsNotFound(err) {
			return Defaults(guildID), nil
		}
		return Settings{}, fmt.Errorf("failed to load guild settings: %w", err)
	}
	return stored.Clone(), nil
}

// AddRole adds roleID to the kind list. Adding a role twice is a no-op.
func (s *Service) AddRole(ctx context.Context, guildID snowflake.ID, kind RoleKind, roleID snowflake.ID) (Settings, error) {
	return s.update(ctx, guildID, func(settings *Settings) error {
		roles := settings.Roles(kind)
		if slices.Contains(*roles, roleID) {
			return nil
		}
		if len(*roles) >= MaxRoles {
			return errs.Validation("role", "at most %d %s roles can be set", MaxRoles, kind)
		}
		*roles = append(*roles, roleID)
		return nil
	})
}

func (s *Service) RemoveRole(ctx context.Context, guildID snowflake.ID, kind RoleKind, roleID snowflake.ID) (Settings, error) {
	return s.update(ctx, guildID, func(settings *Settings) error {
		roles := settings.Roles(kind)
		if !slices.Contains(*roles, roleID) {
			return &errs.NotFoundError{Resource: string(kind) + " role", ID: roleID.String()}
		}
		*roles = slices.DeleteFunc(*roles, func(id snowflake.ID) bool { return id == roleID })
		return nil
	})
}

// SetBulletinChannel points bulletins at channelID. Zero turns them off.
func (s *Service) SetBulletinChannel(ctx context.Context, guildID, channelID snowflake.ID) (Settings, error) {
	return s.update(ctx, guildID, func(settings *Settings) error {
		settings.BulletinChannelID = channelID
		return nil
	})
}

func (s *Service) SetTimeFormat(ctx context.Context, guildID snowflake.ID, use24Hour bool) (Settings, error) {
	return s.update(ctx, guildID, func(settings *Settings) error {
		settings.Use24Hour = use24Hour
		return nil
	})
}

func (s *Service) update(ctx context.Context, guildID snowflake.ID, fn func(*Settings) error) (Settings, error) {
	settings, err := s.Get(ctx, guildID)
	if err != nil {
		return Settings{}, err
	}
	if err := fn(&settings); err != nil {
		return Settings{}, err
	}
	settings.UpdatedAt = s.clock.Now()
	if err := s.repository.Upsert(ctx, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to save guild settings: %w", err)
	}

	slog.Info("Guild settings updated",
		slog.String("type", "sys"),
		slog.String("guild_id", guildID.String()),
	)
	return settings, nil
}
