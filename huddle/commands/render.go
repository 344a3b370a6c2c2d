package commands

import (
	"bytes"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/huddle-bot/huddle/huddle/config"
	"github.com/huddle-bot/huddle/internal/commands"
	"github.com/huddle-bot/huddle/internal/domain/errs"
)

const buttonsPerRow = 5

// customID turns a transport independent control ID like "wizard:confirm"
// into the routable custom ID "/wizard/confirm".
func customID(id string) string {
	return "/" + strings.ReplaceAll(id, ":", "/")
}

// commandName is the registry name of a control ID.
func commandName(id string) string {
	return strings.ReplaceAll(id, ":", ".")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func toneColor(t commands.Tone) int {
	switch t {
	case commands.ToneSuccess:
		return config.SuccessColor
	case commands.ToneWarning:
		return config.WarningColor
	default:
		return config.InfoColor
	}
}

func failureColor(k errs.Kind) int {
	switch k {
	case errs.KindInternal, errs.KindPermission:
		return config.ErrorColor
	case errs.KindPremium:
		return config.InfoColor
	default:
		return config.WarningColor
	}
}

func failureTitle(k errs.Kind) string {
	switch k {
	case errs.KindValidation:
		return "⚠️ Check your input"
	case errs.KindStateConflict:
		return "⚠️ Not possible right now"
	case errs.KindQuota:
		return "📦 Event limit reached"
	case errs.KindPermission:
		return "🔒 Not allowed"
	case errs.KindNotFound:
		return "🔍 Not found"
	case errs.KindPremium:
		return "✨ Premium feature"
	default:
		return "❌ Something went wrong"
	}
}

func addFields(embed *discord.EmbedBuilder, fields []commands.Field) {
	for i, f := range fields {
		if i == config.MaxEmbedFields {
			break
		}
		embed.AddField(truncate(f.Name, 256), truncate(f.Value, config.MaxFieldValueLength), f.Inline)
	}
}

func resultEmbed(res commands.Result) discord.Embed {
	embed := discord.NewEmbedBuilder().
		SetTitle(truncate(res.Title, 256)).
		SetDescription(truncate(res.Body, config.MaxDescriptionLength)).
		SetColor(toneColor(res.Tone))
	addFields(embed, res.Fields)
	if res.ImageName != "" {
		embed.SetImage("attachment://" + res.ImageName)
	}
	return embed.Build()
}

func buttonRows(components []commands.Component) []discord.ContainerComponent {
	var rows []discord.ContainerComponent
	for start := 0; start < len(components); start += buttonsPerRow {
		end := min(start+buttonsPerRow, len(components))
		buttons := make([]discord.InteractiveComponent, 0, end-start)
		for _, c := range components[start:end] {
			buttons = append(buttons, button(c))
		}
		rows = append(rows, discord.NewActionRow(buttons...))
	}
	return rows
}

func button(c commands.Component) discord.ButtonComponent {
	switch c.Style {
	case commands.StyleDanger:
		return discord.NewDangerButton(c.Label, customID(c.ID))
	case commands.StyleSecondary:
		return discord.NewSecondaryButton(c.Label, customID(c.ID))
	default:
		return discord.NewPrimaryButton(c.Label, customID(c.ID))
	}
}

func files(attachments []commands.Attachment) []*discord.File {
	out := make([]*discord.File, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, discord.NewFile(a.Name, "", bytes.NewReader(a.Data)))
	}
	return out
}

func messageCreate(res commands.Result) discord.MessageCreate {
	msg := discord.MessageCreate{
		Embeds:     []discord.Embed{resultEmbed(res)},
		Files:      files(res.Attachments),
		Components: buttonRows(res.Components),
	}
	if res.Ephemeral {
		msg.Flags = discord.MessageFlagEphemeral
	}
	return msg
}

// messageUpdate replaces a message a component was clicked on. Controls
// are removed unless the result brings new ones.
func messageUpdate(res commands.Result) discord.MessageUpdate {
	embeds := []discord.Embed{resultEmbed(res)}
	components := buttonRows(res.Components)
	if components == nil {
		components = []discord.ContainerComponent{}
	}
	return discord.MessageUpdate{
		Embeds:     &embeds,
		Components: &components,
		Files:      files(res.Attachments),
	}
}

func failureMessage(f commands.Failure) discord.MessageCreate {
	return discord.MessageCreate{
		Embeds: []discord.Embed{
			discord.NewEmbedBuilder().
				SetTitle(failureTitle(f.Kind)).
				SetDescription(f.Message).
				SetColor(failureColor(f.Kind)).
				Build(),
		},
		Flags: discord.MessageFlagEphemeral,
	}
}

var guildOnlyMessage = discord.MessageCreate{
	Content: "This command only works inside a server.",
	Flags:   discord.MessageFlagEphemeral,
}

func modalCreate(m *commands.Modal) discord.ModalCreate {
	rows := make([]discord.ContainerComponent, 0, len(m.Inputs))
	for _, in := range m.Inputs {
		style := discord.TextInputStyleShort
		if in.Paragraph {
			style = discord.TextInputStyleParagraph
		}
		rows = append(rows, discord.NewActionRow(discord.TextInputComponent{
			CustomID:    in.ID,
			Style:       style,
			Label:       truncate(in.Label, 45),
			MaxLength:   in.MaxLength,
			Required:    in.Required,
			Placeholder: truncate(in.Placeholder, 100),
			Value:       in.Value,
		}))
	}
	return discord.ModalCreate{
		CustomID:   customID(m.ID),
		Title:      truncate(m.Title, 45),
		Components: rows,
	}
}

// pageFunc renders page n of pages into the paginator's embed.
func pageFunc(pages []commands.Page, tone commands.Tone) func(int, *discord.EmbedBuilder) {
	return func(n int, embed *discord.EmbedBuilder) {
		n = max(0, min(n, len(pages)-1))
		page := pages[n]
		embed.
			SetTitle(truncate(page.Title, 256)).
			SetDescription(truncate(page.Description, config.MaxDescriptionLength)).
			SetColor(toneColor(tone))
		addFields(embed, page.Fields)
	}
}
