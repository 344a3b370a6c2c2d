package config

import "time"

// UI and Display Constants
const (
	ErrorColor   = 0xED4245
	SuccessColor = 0x57F287
	InfoColor    = 0x5865F2
	WarningColor = 0xFEE75C

	EmbedDefaultColor = 0x2B2D31

	// Discord limits
	MaxAutocompleteChoices = 25
	MaxChoiceNameLength    = 100
	MaxEmbedFields         = 25
	MaxFieldValueLength    = 1024
	MaxDescriptionLength   = 4096
)

// Timeouts
const (
	CommandExecutionTimeout = 10 * time.Second
	SlowCommandThreshold    = 2 * time.Second
	AutocompleteTimeout     = 2 * time.Second
	PresenceTimeout         = 5 * time.Second
	ShutdownTimeout         = 10 * time.Second
	GatewayOpenTimeout      = 10 * time.Second
	StartupTimeout          = 2 * time.Minute
)
