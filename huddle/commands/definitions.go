package commands

import "github.com/disgoorg/disgo/discord"

var Commands = []discord.ApplicationCommandCreate{
	Event,
	Availability,
	Timezone,
	Premium,
	Settings,
}

// aliases maps slash paths whose command name differs from "<command>.<sub>".
var aliases = map[string]string{
	"event.wizard": "wizard.start",
}

func intPtr(i int) *int {
	return &i
}

func eventOption(description string) discord.ApplicationCommandOptionString {
	return discord.ApplicationCommandOptionString{
		Name:         "event",
		Description:  description,
		Required:     true,
		Autocomplete: true,
	}
}

func durationOption() discord.ApplicationCommandOptionInt {
	return discord.ApplicationCommandOptionInt{
		Name:        "duration",
		Description: "Length of each slot in minutes (default 60)",
		MinValue:    intPtr(0),
		MaxValue:    intPtr(1440),
	}
}

var Event = discord.SlashCommandCreate{
	Name:        "event",
	Description: "Plan events with your server",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "create",
			Description: "Propose an event with candidate times",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "name",
					Description: "Event name",
					Required:    true,
					MaxLength:   intPtr(100),
				},
				discord.ApplicationCommandOptionString{
					Name:        "slots",
					Description: "Times in your zone separated by ; e.g. 2025-03-10 18:00; 2025-03-11 19:30",
					Required:    true,
					MaxLength:   intPtr(1500),
				},
				discord.ApplicationCommandOptionString{
					Name:        "description",
					Description: "What the event is about",
					MaxLength:   intPtr(1000),
				},
				durationOption(),
				discord.ApplicationCommandOptionBool{
					Name:        "open",
					Description: "Open for answers right away instead of saving a draft",
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "recurring",
			Description: "Propose an event with times generated from a repeat rule",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "name",
					Description: "Event name",
					Required:    true,
					MaxLength:   intPtr(100),
				},
				discord.ApplicationCommandOptionString{
					Name:        "first",
					Description: "First occurrence in your zone, e.g. 2025-03-10 18:00",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "rule",
					Description: "Repeat rule, e.g. FREQ=WEEKLY;COUNT=4",
					Required:    true,
					MaxLength:   intPtr(200),
				},
				discord.ApplicationCommandOptionString{
					Name:        "description",
					Description: "What the event is about",
					MaxLength:   intPtr(1000),
				},
				durationOption(),
				discord.ApplicationCommandOptionBool{
					Name:        "open",
					Description: "Open for answers right away instead of saving a draft",
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "wizard",
			Description: "Create an event step by step",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "open",
			Description: "Open a draft event for answers",
			Options:     []discord.ApplicationCommandOption{eventOption("Draft to open")},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "add-slots",
			Description: "Add candidate times to an event",
			Options: []discord.ApplicationCommandOption{
				eventOption("Event to extend"),
				discord.ApplicationCommandOptionString{
					Name:        "slots",
					Description: "Times in your zone separated by ;",
					Required:    true,
					MaxLength:   intPtr(1500),
				},
				durationOption(),
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "remove-slot",
			Description: "Remove a candidate time",
			Options: []discord.ApplicationCommandOption{
				eventOption("Event to change"),
				discord.ApplicationCommandOptionInt{
					Name:        "slot",
					Description: "Slot number shown in /event info",
					Required:    true,
					MinValue:    intPtr(1),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "edit",
			Description: "Rename an event or change its description",
			Options: []discord.ApplicationCommandOption{
				eventOption("Event to edit"),
				discord.ApplicationCommandOptionString{
					Name:        "name",
					Description: "New name",
					Required:    true,
					MaxLength:   intPtr(100),
				},
				discord.ApplicationCommandOptionString{
					Name:        "description",
					Description: "New description",
					MaxLength:   intPtr(1000),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "finalize",
			Description: "Pick the final time and notify participants",
			Options: []discord.ApplicationCommandOption{
				eventOption("Event to finalize"),
				discord.ApplicationCommandOptionInt{
					Name:        "slot",
					Description: "Slot number, leave empty for the best overlap",
					MinValue:    intPtr(1),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "cancel",
			Description: "Cancel an event",
			Options:     []discord.ApplicationCommandOption{eventOption("Event to cancel")},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "delete",
			Description: "Delete an event and every answer",
			Options:     []discord.ApplicationCommandOption{eventOption("Event to delete")},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "info",
			Description: "Show an event and its best times",
			Options:     []discord.ApplicationCommandOption{eventOption("Event to show")},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "List events of this server",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "status",
					Description: "Only events with this status (default active)",
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "Active", Value: "active"},
						{Name: "Draft", Value: "draft"},
						{Name: "Open", Value: "open"},
						{Name: "Closed", Value: "closed"},
						{Name: "Canceled", Value: "canceled"},
						{Name: "All", Value: "all"},
					},
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "export",
			Description: "Download an event as a calendar file",
			Options:     []discord.ApplicationCommandOption{eventOption("Event to export")},
		},
	},
}

var Availability = discord.SlashCommandCreate{
	Name:        "availability",
	Description: "Tell organizers when you can make it",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "set",
			Description: "Replace your answer for an event",
			Options: []discord.ApplicationCommandOption{
				eventOption("Event to answer"),
				discord.ApplicationCommandOptionString{
					Name:        "slots",
					Description: "Slot numbers like 1,3-5, or none",
					MaxLength:   intPtr(500),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "clear",
			Description: "Withdraw your answer",
			Options:     []discord.ApplicationCommandOption{eventOption("Event to withdraw from")},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "mine",
			Description: "Show your answer",
			Options:     []discord.ApplicationCommandOption{eventOption("Event to check")},
		},
	},
}

var Timezone = discord.SlashCommandCreate{
	Name:        "timezone",
	Description: "Manage your time zone",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "set",
			Description: "Set the zone your times are read and shown in",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "zone",
					Description:  "IANA zone such as Europe/Berlin",
					Required:     true,
					Autocomplete: true,
					MaxLength:    intPtr(64),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "show",
			Description: "Show your time zone",
		},
	},
}

var Premium = discord.SlashCommandCreate{
	Name:        "premium",
	Description: "Server subscription",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "status",
			Description: "Show this server's plan and event quota",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "set",
			Description: "Change this server's plan (admins only)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "tier",
					Description: "Plan",
					Required:    true,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "Free", Value: "free"},
						{Name: "Monthly", Value: "monthly"},
						{Name: "Yearly", Value: "yearly"},
						{Name: "Canceled", Value: "canceled"},
					},
				},
				discord.ApplicationCommandOptionInt{
					Name:        "days",
					Description: "Days until renewal (default one period)",
					MinValue:    intPtr(0),
					MaxValue:    intPtr(3660),
				},
			},
		},
	},
}

func roleKindOption() discord.ApplicationCommandOptionString {
	return discord.ApplicationCommandOptionString{
		Name:        "kind",
		Description: "What the role grants",
		Required:    true,
		Choices: []discord.ApplicationCommandOptionChoiceString{
			{Name: "Admin", Value: "admin"},
			{Name: "Event organizer", Value: "organizer"},
			{Name: "Attendee", Value: "attendee"},
		},
	}
}

var Settings = discord.SlashCommandCreate{
	Name:        "settings",
	Description: "Server settings for event planning",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "show",
			Description: "Show roles, bulletin channel and time format",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "role-add",
			Description: "Grant a permission level to a role (admins only)",
			Options: []discord.ApplicationCommandOption{
				roleKindOption(),
				discord.ApplicationCommandOptionRole{
					Name:        "role",
					Description: "Role to add",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "role-remove",
			Description: "Take a permission level away from a role (admins only)",
			Options: []discord.ApplicationCommandOption{
				roleKindOption(),
				discord.ApplicationCommandOptionRole{
					Name:        "role",
					Description: "Role to remove",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "bulletin",
			Description: "Post opened, scheduled and canceled events to a channel (admins only)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{
					Name:         "channel",
					Description:  "Channel for bulletins, leave empty to turn them off",
					ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildText, discord.ChannelTypeGuildNews},
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "time-format",
			Description: "Show times with a 12 or 24 hour clock (admins only)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "clock",
					Description: "Clock to use",
					Required:    true,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "24 hour", Value: "24h"},
						{Name: "12 hour", Value: "12h"},
					},
				},
			},
		},
	},
}

// route is one slash subcommand bound to a registry command.
type route struct {
	Command      string
	Sub          string
	Name         string
	Autocomplete bool
}

// routes derives the subcommand routes from Commands.
func routes() []route {
	var out []route
	for _, create := range Commands {
		cmd, ok := create.(discord.SlashCommandCreate)
		if !ok {
			continue
		}
		for _, opt := range cmd.Options {
			sub, ok := opt.(discord.ApplicationCommandOptionSubCommand)
			if !ok {
				continue
			}
			name := cmd.Name + "." + sub.Name
			if alias, ok := aliases[name]; ok {
				name = alias
			}
			r := route{Command: cmd.Name, Sub: sub.Name, Name: name}
			for _, o := range sub.Options {
				if s, ok := o.(discord.ApplicationCommandOptionString); ok && s.Autocomplete {
					r.Autocomplete = true
				}
			}
			out = append(out, r)
		}
	}
	return out
}
