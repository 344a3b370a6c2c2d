package commands

import (
	"errors"

	"github.com/huddle-bot/huddle/internal/domain/errs"
)

type Tone int

const (
	ToneInfo Tone = iota
	ToneSuccess
	ToneWarning
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Page is one screen of a paginated result.
type Page struct {
	Title       string
	Description string
	Fields      []Field
}

// Component asks the transport for an interactive control.
type Component struct {
	ID    string
	Label string
	Style ComponentStyle
}

type ComponentStyle int

const (
	StylePrimary ComponentStyle = iota
	StyleSecondary
	StyleDanger
)

// Input is one text field of a Modal.
type Input struct {
	ID          string
	Label       string
	Placeholder string
	Value       string
	Paragraph   bool
	Required    bool
	MaxLength   int
}

// Modal asks the transport to collect text input before anything else.
type Modal struct {
	ID     string
	Title  string
	Inputs []Input
}

// Result is what a handler returns for the transport to render.
type Result struct {
	Title       string
	Body        string
	Fields      []Field
	Tone        Tone
	Ephemeral   bool
	Attachments []Attachment
	Pages       []Page
	Components  []Component
	// ImageName names the attachment shown as the embed image.
	ImageName string
	Modal     *Modal
}

// Failure is the user facing rendering of an error.
type Failure struct {
	Kind    errs.Kind
	Message string
}

const internalMessage = "Something went wrong on my side. Please try again in a moment."

// Classify turns err into a Failure. Unclassified errors are internal and
// their text is not shown to users.
func Classify(err error) Failure {
	var classified errs.Classified
	if errors.As(err, &classified) {
		return Failure{Kind: classified.Kind(), Message: classified.UserMessage()}
	}
	return Failure{Kind: errs.KindInternal, Message: internalMessage}
}
