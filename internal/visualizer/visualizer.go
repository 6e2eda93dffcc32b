// Package visualizer реализует задачу оценки: читает папку запуска,
// профилирует выбранного зрителя и сохраняет график рядом с записями.
package visualizer

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/config"
	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/i18n"
	"github.com/alexhooketh/tg-stories-viewers-profiler/models"
	"github.com/alexhooketh/tg-stories-viewers-profiler/pkg/chart"
	"github.com/alexhooketh/tg-stories-viewers-profiler/pkg/engagement"
	"github.com/alexhooketh/tg-stories-viewers-profiler/pkg/storage"
)

// Форматы даты-времени, допустимые в отметках. Время без зоны считается UTC,
// как и все метки времени в записях.
var landmarkLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Options — аргументы запуска визуализатора.
type Options struct {
	Folder    string
	ViewerID  int64
	Landmarks []models.Landmark
	Out       io.Writer // сводная таблица; обычно os.Stdout
}

// ParseLandmarks разбирает повторяемые значения флага -m
// вида "<дата-время>|<подпись>".
func ParseLandmarks(specs []string) ([]models.Landmark, error) {
	var out []models.Landmark
	for _, spec := range specs {
		raw, label, found := strings.Cut(spec, "|")
		if !found {
			return nil, fmt.Errorf("%s", i18n.T("Invalid landmark '{spec}'. Expected '<datetime>|<label>'.", "spec", spec))
		}
		at, err := parseLandmarkTime(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s", i18n.T("Invalid datetime '{dt}' in landmark.", "dt", strings.TrimSpace(raw)))
		}
		out = append(out, models.Landmark{At: at, Label: strings.TrimSpace(label)})
	}
	return out, nil
}

func parseLandmarkTime(raw string) (time.Time, error) {
	for _, layout := range landmarkLayouts {
		if at, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("не удалось разобрать %q", raw)
}

// Run выполняет оценку от чтения записей до сохранения графика.
// Любой сбой — отсутствующая папка, неизвестный зритель, нехватка данных —
// явная ошибка: пустой график молча не рисуется.
func Run(cfg config.Config, opts Options) error {
	store := storage.NewRunStore(cfg.ResultsDir)
	dir, err := store.ResolveDir(opts.Folder)
	if err != nil {
		return fmt.Errorf("%s", i18n.T("Directory not found: {dir}", "dir", opts.Folder))
	}

	stories, err := storage.LoadRun(dir)
	if err != nil {
		return err
	}

	res, err := engagement.Profile(stories, opts.ViewerID)
	if err != nil {
		return err
	}

	profile, ok := storage.LookupViewer(stories, opts.ViewerID)
	if !ok {
		profile = models.ViewerProfile{ID: opts.ViewerID}
	}

	if opts.Out != nil {
		writeSummary(opts.Out, res)
	}
	log.Printf("[STATS] выборка: %d интервалов, p20=%.0fс, p80=%.0fс",
		res.SampleSize, res.Thresholds.SwipeMax, res.Thresholds.FullMin)

	outPath := filepath.Join(dir, fmt.Sprintf("%d.png", opts.ViewerID))
	if err := chart.Save(outPath, res.Points, chart.Options{Profile: profile, Landmarks: opts.Landmarks}); err != nil {
		return err
	}

	if opts.Out != nil {
		fmt.Fprintln(opts.Out, i18n.T("Saved plot to {path}", "path", outPath))
		fmt.Fprintln(opts.Out, i18n.T("Color indicates latency between story publication and user's view: green = viewed quickly, yellow = moderate, red = viewed after long delay. Empty = not viewed."))
	}
	return nil
}

// writeSummary печатает сводную таблицу по историям запуска.
func writeSummary(out io.Writer, res *engagement.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		i18n.T("Story"),
		i18n.T("Published"),
		i18n.T("Engagement"),
		i18n.T("View latency"),
	})
	for _, pt := range res.Points {
		latency := "—"
		if pt.Viewed {
			latency = chart.FormatLatency(pt.Latency)
		}
		t.AppendRow(table.Row{
			pt.Story.ID,
			pt.Story.PublishedAt.Format("2006-01-02 15:04"),
			i18n.T(engagement.ScoreLabel(pt.Score)),
			latency,
		})
	}
	t.Render()
}
