package commands

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/commands"
)

// options reads named values from an interaction.
type options interface {
	String(name string) (string, bool)
	Int(name string) (int, bool)
	Bool(name string) (bool, bool)
	Snowflake(name string) (snowflake.ID, bool)
}

type slashOptions struct {
	data discord.SlashCommandInteractionData
}

func (o slashOptions) String(name string) (string, bool) { return o.data.OptString(name) }
func (o slashOptions) Int(name string) (int, bool)       { return o.data.OptInt(name) }
func (o slashOptions) Bool(name string) (bool, bool)     { return o.data.OptBool(name) }

// Snowflake reads role, channel and user options by ID.
func (o slashOptions) Snowflake(name string) (snowflake.ID, bool) { return o.data.OptSnowflake(name) }

// textOptions reads modal text inputs, where every value arrives as a string.
type textOptions func(id string) (string, bool)

func (o textOptions) String(name string) (string, bool) { return o(name) }

func (o textOptions) Int(name string) (int, bool) {
	v, ok := o(name)
	if !ok || strings.TrimSpace(v) == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (o textOptions) Bool(name string) (bool, bool) {
	v, ok := o(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return b, err == nil
}

func (o textOptions) Snowflake(name string) (snowflake.ID, bool) {
	v, ok := o(name)
	if !ok {
		return 0, false
	}
	id, err := snowflake.Parse(strings.TrimSpace(v))
	return id, err == nil
}

// decoder fills struct fields tagged `option:"name"` from opts. Missing
// options leave the zero value for validation to judge.
func decoder(opts options) commands.Decoder {
	return func(target any) error {
		v := reflect.ValueOf(target)
		if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("decode target must be a struct pointer, got %T", target)
		}
		v = v.Elem()
		t := v.Type()

		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			name, _, _ := strings.Cut(field.Tag.Get("option"), ",")
			if name == "" || name == "-" {
				continue
			}

			fv := v.Field(i)
			switch fv.Kind() {
			case reflect.String:
				if s, ok := opts.String(name); ok {
					fv.SetString(strings.TrimSpace(s))
				}
			case reflect.Int, reflect.Int64:
				if n, ok := opts.Int(name); ok {
					fv.SetInt(int64(n))
				}
			case reflect.Bool:
				if b, ok := opts.Bool(name); ok {
					fv.SetBool(b)
				}
			case reflect.Uint64:
				if id, ok := opts.Snowflake(name); ok {
					fv.SetUint(uint64(id))
				}
			default:
				return fmt.Errorf("unsupported option field %s of kind %s", field.Name, fv.Kind())
			}
		}
		return nil
	}
}
