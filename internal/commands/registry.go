// Package commands maps command names to typed handlers independent of the
// chat transport that delivers them.
package commands

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/go-playground/validator/v10"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
)

// Context describes who invoked a command and where. It replaces any
// process wide state a handler might otherwise reach for.
type Context struct {
	GuildID        snowflake.ID
	UserID         snowflake.ID
	UserName       string
	Level          guilds.Level
	ConversationID string
	// Use24Hour is the guild's preferred clock for wall clock times.
	Use24Hour bool
}

// Handler runs one command with decoded and validated input.
type Handler[In any] func(ctx context.Context, c Context, in In) (Result, error)

// Decoder fills target, a pointer to a handler's input struct.
type Decoder func(target any) error

type route struct {
	newInput func() any
	call     func(ctx context.Context, c Context, in any) (Result, error)
}

type Registry struct {
	validate *validator.Validate
	routes   map[string]route
}

func NewRegistry() *Registry {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name, _, _ := strings.Cut(field.Tag.Get("option"), ","); name != "" && name != "-" {
			return name
		}
		return strings.ToLower(field.Name)
	})
	return &Registry{
		validate: v,
		routes:   make(map[string]route),
	}
}

// Register binds name to h. Registering a name twice panics.
func Register[In any](r *Registry, name string, h Handler[In]) {
	if _, ok := r.routes[name]; ok {
		panic(fmt.Sprintf("commands: %s registered twice", name))
	}
	r.routes[name] = route{
		newInput: func() any { return new(In) },
		call: func(ctx context.Context, c Context, in any) (Result, error) {
			return h(ctx, c, *in.(*In))
		},
	}
}

// Names lists the registered commands in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// UnknownCommandError is returned by Dispatch for unregistered names.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string { return "unknown command " + e.Name }

func (e *UnknownCommandError) Kind() errs.Kind { return errs.KindNotFound }

func (e *UnknownCommandError) UserMessage() string {
	return "I don't know that command. It may have been removed."
}

// Dispatch decodes and validates input for name and runs its handler.
func (r *Registry) Dispatch(ctx context.Context, name string, c Context, decode Decoder) (Result, error) {
	rt, ok := r.routes[name]
	if !ok {
		return Result{}, &UnknownCommandError{Name: name}
	}

	in := rt.newInput()
	if decode != nil {
		if err := decode(in); err != nil {
			var classified errs.Classified
			if errors.As(err, &classified) {
				return Result{}, err
			}
			return Result{}, errs.Validation("", "could not read the command options: %v", err)
		}
	}
	if err := r.validateInput(in); err != nil {
		return Result{}, err
	}
	return rt.call(ctx, c, in)
}

func (r *Registry) validateInput(in any) error {
	if reflect.Indirect(reflect.ValueOf(in)).Kind() != reflect.Struct {
		return nil
	}
	err := r.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate input: %w", err)
	}
	fe := fieldErrs[0]
	return errs.Validation(fe.Field(), "%s", describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is not valid (" + fe.Tag() + ")"
	}
}
