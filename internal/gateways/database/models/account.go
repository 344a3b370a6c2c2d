package models

import (
	"time"

	"github.com/uptrace/bun"
)

type UserTimezone struct {
	bun.BaseModel `bun:"table:user_timezones,alias:ut"`

	UserID    int64     `bun:"user_id,pk"`
	Zone      string    `bun:"zone,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

type Subscription struct {
	bun.BaseModel `bun:"table:subscriptions,alias:sub"`

	GuildID   int64     `bun:"guild_id,pk"`
	Tier      string    `bun:"tier,notnull"`
	RenewsAt  time.Time `bun:"renews_at,nullzero"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// GuildSettings holds role lists as Discord IDs.
type GuildSettings struct {
	bun.BaseModel `bun:"table:guild_settings,alias:gs"`

	GuildID           int64     `bun:"guild_id,pk"`
	AdminRoles        []int64   `bun:"admin_roles,array,notnull,default:'{}'"`
	OrganizerRoles    []int64   `bun:"organizer_roles,array,notnull,default:'{}'"`
	AttendeeRoles     []int64   `bun:"attendee_roles,array,notnull,default:'{}'"`
	BulletinChannelID int64     `bun:"bulletin_channel_id,notnull,default:0"`
	Use24Hour         bool      `bun:"use_24_hour,notnull,default:true"`
	UpdatedAt         time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
