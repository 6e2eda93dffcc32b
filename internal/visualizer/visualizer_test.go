package visualizer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/config"
	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/i18n"
	"github.com/alexhooketh/tg-stories-viewers-profiler/models"
	"github.com/alexhooketh/tg-stories-viewers-profiler/pkg/engagement"
	"github.com/alexhooketh/tg-stories-viewers-profiler/pkg/storage"
)

var publishBase = time.Date(2024, 7, 16, 10, 0, 0, 0, time.UTC)

// TestParseLandmarks проверяет разбор отметок в поддерживаемых форматах.
func TestParseLandmarks(t *testing.T) {
	marks, err := ParseLandmarks([]string{
		"2024-07-16 12:00|началась ссора",
		"2024-07-17T08:30:00Z| уехал ",
		"2024-07-18|вернулся",
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(marks) != 3 {
		t.Fatalf("ожидали 3 отметки, получили %d", len(marks))
	}
	if !marks[0].At.Equal(time.Date(2024, 7, 16, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("время первой отметки: %v", marks[0].At)
	}
	if marks[0].Label != "началась ссора" {
		t.Errorf("подпись первой отметки: %q", marks[0].Label)
	}
	if marks[1].Label != "уехал" {
		t.Errorf("подпись должна быть без крайних пробелов: %q", marks[1].Label)
	}
}

// TestParseLandmarks_Errors проверяет отказ на отметках без разделителя
// и с нечитаемой датой.
func TestParseLandmarks_Errors(t *testing.T) {
	if _, err := ParseLandmarks([]string{"2024-07-16 12:00 без подписи"}); err == nil {
		t.Errorf("отметка без '|' должна давать ошибку")
	}
	if _, err := ParseLandmarks([]string{"не дата|подпись"}); err == nil {
		t.Errorf("нечитаемая дата должна давать ошибку")
	}
}

// writeRun готовит папку запуска с тремя историями и двумя зрителями.
func writeRun(t *testing.T, root string) string {
	t.Helper()
	store := storage.NewRunStore(root)
	run, err := store.CreateRun(publishBase)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	stories := []models.Story{
		{ID: 1, PublishedAt: publishBase},
		{ID: 2, PublishedAt: publishBase.Add(time.Hour)},
		{ID: 3, PublishedAt: publishBase.Add(2 * time.Hour)},
	}
	if err := run.WriteManifest(stories); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	views := []map[int64]int{
		{100: 10, 200: 5},
		{100: 3640, 200: 7205},
		{100: 7300},
	}
	for i, st := range stories {
		sv := models.StoryViews{Story: st, Views: map[int64]models.ViewRecord{}}
		for viewerID, off := range views[i] {
			sv.Views[viewerID] = models.ViewRecord{
				StoryID:     st.ID,
				ViewerID:    viewerID,
				FullName:    "Иван Петров",
				Username:    "ivan",
				ViewedAt:    publishBase.Add(time.Duration(off) * time.Second),
				PublishedAt: st.PublishedAt,
			}
		}
		if err := run.WriteStoryViews(sv); err != nil {
			t.Fatalf("WriteStoryViews: %v", err)
		}
	}
	return run.Name
}

// TestRun проверяет полный прогон: таблица, график и сообщения на выходе.
func TestRun(t *testing.T) {
	i18n.SetLocale("en")
	root := t.TempDir()
	name := writeRun(t, root)

	var out bytes.Buffer
	cfg := config.Config{ResultsDir: root}
	err := Run(cfg, Options{Folder: name, ViewerID: 100, Out: &out})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	pngPath := filepath.Join(root, name, "100.png")
	if _, err := os.Stat(pngPath); err != nil {
		t.Errorf("график не сохранён: %v", err)
	}
	if !strings.Contains(out.String(), "Saved plot to") {
		t.Errorf("нет сообщения о сохранении графика: %q", out.String())
	}
	if !strings.Contains(out.String(), "likely watched fully") {
		t.Errorf("в таблице нет подписи балла: %q", out.String())
	}
}

// TestRun_MissingFolder проверяет явную ошибку на отсутствующей папке.
func TestRun_MissingFolder(t *testing.T) {
	cfg := config.Config{ResultsDir: t.TempDir()}
	if err := Run(cfg, Options{Folder: "нет_такой", ViewerID: 1}); err == nil {
		t.Fatalf("отсутствующая папка должна давать ошибку")
	}
}

// TestRun_UnknownViewer проверяет явную ошибку на неизвестном зрителе.
func TestRun_UnknownViewer(t *testing.T) {
	root := t.TempDir()
	name := writeRun(t, root)
	cfg := config.Config{ResultsDir: root}

	err := Run(cfg, Options{Folder: name, ViewerID: 999})
	if !errors.Is(err, engagement.ErrUnknownViewer) {
		t.Fatalf("ожидали ErrUnknownViewer, получили %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(root, name, "999.png")); statErr == nil {
		t.Errorf("график для неизвестного зрителя не должен появляться")
	}
}

// TestRun_InsufficientData проверяет явную ошибку при нехватке интервалов.
func TestRun_InsufficientData(t *testing.T) {
	root := t.TempDir()
	store := storage.NewRunStore(root)
	run, _ := store.CreateRun(publishBase)

	stories := []models.Story{
		{ID: 1, PublishedAt: publishBase},
		{ID: 2, PublishedAt: publishBase.Add(time.Hour)},
	}
	if err := run.WriteManifest(stories); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	for _, st := range stories {
		sv := models.StoryViews{Story: st, Views: map[int64]models.ViewRecord{
			100: {StoryID: st.ID, ViewerID: 100, ViewedAt: st.PublishedAt.Add(time.Minute), PublishedAt: st.PublishedAt},
		}}
		if err := run.WriteStoryViews(sv); err != nil {
			t.Fatalf("WriteStoryViews: %v", err)
		}
	}

	cfg := config.Config{ResultsDir: root}
	err := Run(cfg, Options{Folder: run.Name, ViewerID: 100})
	if !errors.Is(err, engagement.ErrInsufficientGaps) {
		t.Fatalf("ожидали ErrInsufficientGaps, получили %v", err)
	}
}
