// Package render draws overlap summaries as images.
package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/huddle-bot/huddle/internal/domain/availability"
)

//go:embed templates/heatmap.html
var heatmapHTML string

var heatmapTemplate = template.Must(template.New("heatmap").Parse(heatmapHTML))

type Row struct {
	SlotID  int
	Label   string
	Count   int
	Percent int
	Color   template.CSS
	Best    bool
}

type Heatmap struct {
	Name        string
	Zone        string
	Generated   string
	Respondents int
	Rows        []Row
}

// BuildHeatmap lays out one row per slot in proposal order, labelled in loc.
func BuildHeatmap(summary *availability.Summary, loc *time.Location, now time.Time) Heatmap {
	if loc == nil {
		loc = time.UTC
	}
	h := Heatmap{
		Name:        summary.Event.Name,
		Zone:        loc.String(),
		Generated:   now.In(loc).Format("Jan 2 15:04 MST"),
		Respondents: summary.Overlap.Respondents,
	}

	best, hasBest := summary.Overlap.Best()
	for _, slot := range summary.Event.Slots {
		ranking, _ := summary.Overlap.Find(slot.ID)
		row := Row{
			SlotID: int(slot.ID),
			Label:  slot.Start.In(loc).Format("Mon Jan 2 15:04"),
			Count:  ranking.AvailableCount,
			Best:   hasBest && best.AvailableCount > 0 && ranking.AvailableCount == best.AvailableCount,
		}
		if h.Respondents > 0 {
			row.Percent = ranking.AvailableCount * 100 / h.Respondents
		}
		row.Color = shade(row.Percent)
		h.Rows = append(h.Rows, row)
	}
	return h
}

// shade maps a percentage to a red to green ramp.
func shade(percent int) template.CSS {
	switch {
	case percent >= 75:
		return "#57f287"
	case percent >= 50:
		return "#a5e05a"
	case percent >= 25:
		return "#fee75c"
	case percent > 0:
		return "#f0a04b"
	default:
		return "#ed4245"
	}
}

func (h Heatmap) HTML() (string, error) {
	var buf bytes.Buffer
	if err := heatmapTemplate.Execute(&buf, h); err != nil {
		return "", fmt.Errorf("failed to execute heatmap template: %w", err)
	}
	return buf.String(), nil
}

// Renderer screenshots heatmaps with a headless browser.
type Renderer struct {
	logger  *slog.Logger
	timeout time.Duration
}

func NewRenderer(timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Renderer{
		logger:  slog.With(slog.String("service", "heatmap_image")),
		timeout: timeout,
	}
}

// Probe checks that a browser can be started and logs the outcome.
func (r *Renderer) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate("data:text/html,<html><body>ok</body></html>")); err != nil {
		r.logger.Error("chromedp not available, heatmap images disabled", slog.String("error", err.Error()))
		return err
	}
	r.logger.Info("chromedp is available")
	return nil
}

// Render returns the heatmap of summary as a PNG.
func (r *Renderer) Render(ctx context.Context, summary *availability.Summary, loc *time.Location) ([]byte, error) {
	start := time.Now()

	page, err := BuildHeatmap(summary, loc, start).HTML()
	if err != nil {
		return nil, err
	}

	browserCtx, cancel := chromedp.NewContext(ctx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()
	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	var png []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("data:text/html,"+url.PathEscape(page)),
		chromedp.WaitVisible("#heatmap-container", chromedp.ByID),
		chromedp.Screenshot("#heatmap-container", &png, chromedp.ByID),
	)
	if err != nil {
		r.logger.Error("Failed to render heatmap",
			slog.String("event_id", summary.Event.ID.String()),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("failed to render heatmap: %w", err)
	}

	r.logger.Info("Heatmap rendered",
		slog.String("event_id", summary.Event.ID.String()),
		slog.Int("image_size", len(png)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return png, nil
}
