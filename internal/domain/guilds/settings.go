// Package guilds holds per guild configuration: which roles may organize or
// administer events, where bulletins go and how times are displayed.
package guilds

import (
	"slices"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Level is a member's permission level in a guild. Higher levels include
// everything the lower ones allow.
type Level int

const (
	// LevelNone members cannot respond to events. It only occurs when a
	// guild restricts attendance to roles.
	LevelNone Level = iota
	LevelAttendee
	LevelOrganizer
	LevelAdmin
)

func (l Level) String() string {
	switch l {
	case LevelAttendee:
		return "attendee"
	case LevelOrganizer:
		return "event organizer"
	case LevelAdmin:
		return "admin"
	default:
		return "none"
	}
}

// RoleKind selects one of the role lists of Settings.
type RoleKind string

const (
	RoleAdmin     RoleKind = "admin"
	RoleOrganizer RoleKind = "organizer"
	RoleAttendee  RoleKind = "attendee"
)

func ParseRoleKind(s string) (RoleKind, bool) {
	switch k := RoleKind(s); k {
	case RoleAdmin, RoleOrganizer, RoleAttendee:
		return k, true
	}
	return "", false
}

type Settings struct {
	GuildID        snowflake.ID
	AdminRoles     []snowflake.ID
	OrganizerRoles []snowflake.ID
	AttendeeRoles  []snowflake.ID
	// BulletinChannelID is zero when bulletins are off.
	BulletinChannelID snowflake.ID
	Use24Hour         bool
	UpdatedAt         time.Time
}

// Defaults are the settings of a guild that never configured anything:
// everyone may organize and times use the 24 hour clock.
func Defaults(guildID snowflake.ID) Settings {
	return Settings{GuildID: guildID, Use24Hour: true}
}

// LevelOf resolves the level of a member holding roles. Discord
// administrators are always admins. Without organizer roles every member
// may organize. Without attendee roles every member may attend.
func (s Settings) LevelOf(roles []snowflake.ID, discordAdmin bool) Level {
	switch {
	case discordAdmin || hasAny(roles, s.AdminRoles):
		return LevelAdmin
	case len(s.OrganizerRoles) == 0 || hasAny(roles, s.OrganizerRoles):
		return LevelOrganizer
	case len(s.AttendeeRoles) == 0 || hasAny(roles, s.AttendeeRoles):
		return LevelAttendee
	default:
		return LevelNone
	}
}

// Roles returns the list kind selects.
func (s *Settings) Roles(kind RoleKind) *[]snowflake.ID {
	switch kind {
	case RoleAdmin:
		return &s.AdminRoles
	case RoleOrganizer:
		return &s.OrganizerRoles
	default:
		return &s.AttendeeRoles
	}
}

func (s Settings) Clone() Settings {
	s.AdminRoles = slices.Clone(s.AdminRoles)
	s.OrganizerRoles = slices.Clone(s.OrganizerRoles)
	s.AttendeeRoles = slices.Clone(s.AttendeeRoles)
	return s
}

func hasAny(roles, want []snowflake.ID) bool {
	for _, r := range roles {
		if slices.Contains(want, r) {
			return true
		}
	}
	return false
}
