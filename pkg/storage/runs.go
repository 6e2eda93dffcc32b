// Package storage отвечает за долговременное хранение результатов сбора.
// Один запуск сборщика — одна папка results/<UTC yyyymmdd_HHMMSS> с
// манифестом stories.csv и файлом <story_id>.csv на каждую историю.
// Папка после завершения сборщика не изменяется: повторный сбор создаёт
// новую папку, а не дописывает старую.
package storage

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/alexhooketh/tg-stories-viewers-profiler/models"
)

const (
	// ManifestName — имя манифеста запуска: по строке на каждую собранную
	// историю, даже если у неё нет ни одного просмотра.
	ManifestName = "stories.csv"

	runNameLayout = "20060102_150405"
	timeLayout    = time.RFC3339
)

// RunStore управляет папками запусков внутри корневой директории результатов.
type RunStore struct {
	Root string
}

func NewRunStore(root string) *RunStore {
	return &RunStore{Root: root}
}

// Run — одна папка запуска. Создаётся сборщиком, читается визуализатором.
type Run struct {
	Name string
	Dir  string
}

// CreateRun создаёт папку нового запуска с именем из текущего времени UTC.
func (s *RunStore) CreateRun(now time.Time) (*Run, error) {
	name := now.UTC().Format(runNameLayout)
	dir := filepath.Join(s.Root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("создание папки запуска: %w", err)
	}
	return &Run{Name: name, Dir: dir}, nil
}

// ListRuns возвращает имена папок запусков, новые первыми.
func (s *RunStore) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("чтение %s: %w", s.Root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// ResolveDir превращает имя запуска в путь к папке. Имя может быть и готовым
// путём: так оператору удобнее передавать папку из другого места.
// Отсутствующая папка — ошибка, совместимая с fs.ErrNotExist.
func (s *RunStore) ResolveDir(name string) (string, error) {
	for _, dir := range []string{name, filepath.Join(s.Root, name)} {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("папка запуска %q: %w", name, fs.ErrNotExist)
}

// WriteManifest записывает stories.csv. Истории идут в порядке публикации:
// порядок в манифесте — единственный авторитетный порядок историй запуска.
func (r *Run) WriteManifest(stories []models.Story) error {
	f, err := os.Create(filepath.Join(r.Dir, ManifestName))
	if err != nil {
		return fmt.Errorf("создание манифеста: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"story_id", "publish_date"}); err != nil {
		return err
	}
	for _, st := range stories {
		row := []string{
			strconv.Itoa(st.ID),
			st.PublishedAt.UTC().Format(timeLayout),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteStoryViews записывает файл <story_id>.csv. Просмотры сортируются по
// времени, самые ранние первыми. История без просмотров даёт файл с одним
// заголовком: это не ошибка.
func (r *Run) WriteStoryViews(sv models.StoryViews) error {
	f, err := os.Create(filepath.Join(r.Dir, strconv.Itoa(sv.Story.ID)+".csv"))
	if err != nil {
		return fmt.Errorf("создание файла истории %d: %w", sv.Story.ID, err)
	}
	defer f.Close()

	records := make([]models.ViewRecord, 0, len(sv.Views))
	for _, rec := range sv.Views {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ViewedAt.Before(records[j].ViewedAt)
	})

	w := csv.NewWriter(f)
	header := []string{"story_id", "viewer_id", "full_name", "username", "view_date", "publish_date"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		viewDate := ""
		if rec.Viewed() {
			viewDate = rec.ViewedAt.UTC().Format(timeLayout)
		}
		row := []string{
			strconv.Itoa(sv.Story.ID),
			strconv.FormatInt(rec.ViewerID, 10),
			rec.FullName,
			rec.Username,
			viewDate,
			sv.Story.PublishedAt.UTC().Format(timeLayout),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// LoadRun читает папку запуска целиком: манифест плюс файлы историй.
// Истории возвращаются в порядке публикации. Битые строки пропускаются,
// дубликаты (story_id, viewer_id) схлопываются — последняя строка побеждает.
// Папка без манифеста — ошибка: молча рисовать пустой график нельзя.
func LoadRun(dir string) ([]models.StoryViews, error) {
	stories, err := readManifest(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, fmt.Errorf("манифест %s пуст", filepath.Join(dir, ManifestName))
	}

	sort.SliceStable(stories, func(i, j int) bool {
		if stories[i].PublishedAt.Equal(stories[j].PublishedAt) {
			return stories[i].ID < stories[j].ID
		}
		return stories[i].PublishedAt.Before(stories[j].PublishedAt)
	})

	out := make([]models.StoryViews, 0, len(stories))
	for _, st := range stories {
		views, err := readStoryViews(filepath.Join(dir, strconv.Itoa(st.ID)+".csv"), st)
		if err != nil {
			return nil, err
		}
		out = append(out, models.StoryViews{Story: st, Views: views})
	}
	return out, nil
}

// LookupViewer ищет имя и username зрителя в любой записи запуска.
func LookupViewer(stories []models.StoryViews, viewerID int64) (models.ViewerProfile, bool) {
	for _, st := range stories {
		if rec, ok := st.Views[viewerID]; ok {
			return models.ViewerProfile{
				ID:       viewerID,
				FullName: rec.FullName,
				Username: rec.Username,
			}, true
		}
	}
	return models.ViewerProfile{}, false
}

func readManifest(path string) ([]models.Story, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("чтение манифеста: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("разбор манифеста %s: %w", path, err)
	}

	var stories []models.Story
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		id, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		published, err := time.Parse(timeLayout, row[1])
		if err != nil {
			continue
		}
		stories = append(stories, models.Story{ID: id, PublishedAt: published})
	}
	return stories, nil
}

// readStoryViews читает файл одной истории. Отсутствующий файл равнозначен
// истории без просмотров: манифест важнее.
func readStoryViews(path string, st models.Story) (map[int64]models.ViewRecord, error) {
	views := make(map[int64]models.ViewRecord)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return views, nil
		}
		return nil, fmt.Errorf("чтение %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}

	for i, row := range rows {
		if i == 0 || len(row) < 6 {
			continue
		}
		viewerID, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			continue
		}
		rec := models.ViewRecord{
			StoryID:     st.ID,
			ViewerID:    viewerID,
			FullName:    row[2],
			Username:    row[3],
			PublishedAt: st.PublishedAt,
		}
		if row[4] != "" {
			viewedAt, err := time.Parse(timeLayout, row[4])
			if err != nil {
				continue
			}
			rec.ViewedAt = viewedAt
		}
		views[viewerID] = rec
	}
	return views, nil
}
