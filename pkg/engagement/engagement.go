// Package engagement оценивает внимательность зрителя к историям по
// статистике интервалов между его последовательными просмотрами.
//
// Работа разбита на два чистых этапа: сначала по просмотрам всех зрителей
// строится общая выборка интервалов Δt и из неё берутся пороги p20/p80,
// затем истории выбранного зрителя классифицируются относительно порогов.
// Никакого разделяемого состояния между этапами нет.
package engagement

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/alexhooketh/tg-stories-viewers-profiler/models"
)

// Баллы вовлечённости для одной истории.
const (
	ScoreNotViewed        = 0.0  // историю не открывали
	ScoreSwipedPast       = 0.5  // пролистал: интервал не больше p20
	ScorePartiallyWatched = 0.75 // интервал строго между порогами
	ScoreWatchedFully     = 1.0  // досмотрел: интервал не меньше p80 или следующего просмотра нет
)

var (
	// ErrInsufficientGaps возвращается, когда в общей выборке меньше двух
	// интервалов и перцентили не определены. Молча подставлять нулевые
	// пороги нельзя: оценка стала бы бессмысленной.
	ErrInsufficientGaps = errors.New("insufficient view gaps to compute thresholds")

	// ErrUnknownViewer возвращается, когда зритель не встречается ни в одной
	// записи набора: скорее всего, оператор опечатался в идентификаторе.
	ErrUnknownViewer = errors.New("viewer not present in any record")
)

// Thresholds — глобальные пороги классификации, полученные из общей выборки.
type Thresholds struct {
	SwipeMax float64 // p20, секунды: интервалы не больше него считаются пролистыванием
	FullMin  float64 // p80, секунды: интервалы не меньше него считаются полным просмотром
}

// Result — итог профилирования зрителя по одному набору историй.
type Result struct {
	Points     []models.EngagementPoint
	Thresholds Thresholds
	SampleSize int // объём общей выборки интервалов
}

// GapSample собирает общую выборку интервалов Δt в секундах: для каждого
// зрителя и каждой пары соседних по времени публикации историй, обе из
// которых он открывал, берётся view(n+1) − view(n). Отрицательные интервалы
// (просмотр задом наперёд) отбрасываются, нулевые остаются.
// Истории должны быть отсортированы по времени публикации.
func GapSample(stories []models.StoryViews) []float64 {
	var sample []float64
	for i := 0; i+1 < len(stories); i++ {
		next := stories[i+1].Views
		for viewerID, cur := range stories[i].Views {
			if !cur.Viewed() {
				continue
			}
			nxt, ok := next[viewerID]
			if !ok || !nxt.Viewed() {
				continue
			}
			gap := nxt.ViewedAt.Sub(cur.ViewedAt).Seconds()
			if gap < 0 {
				continue
			}
			sample = append(sample, gap)
		}
	}
	return sample
}

// Quantile возвращает p-й квантиль (0 ≤ p ≤ 1) отсортированной по
// возрастанию выборки. Используется линейная интерполяция между порядковыми
// статистиками: ранг = p·(n−1) от нуля, дробная часть ранга даёт вес
// соседнего элемента. Метод фиксирован, потому что от него зависит
// классификация на границах порогов.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	if lo < 0 {
		lo = 0
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// ComputeThresholds считает p20 и p80 общей выборки. Выборка не изменяется.
// Меньше двух значений — пороги не определены, возвращаем ErrInsufficientGaps.
func ComputeThresholds(sample []float64) (Thresholds, error) {
	if len(sample) < 2 {
		return Thresholds{}, ErrInsufficientGaps
	}
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)
	return Thresholds{
		SwipeMax: Quantile(sorted, 0.20),
		FullMin:  Quantile(sorted, 0.80),
	}, nil
}

// Classify раскладывает истории зрителя по баллам вовлечённости.
// Истории должны идти в порядке публикации. Правила для истории n:
//
//   - зритель её не открывал — 0;
//   - следующей истории нет или зритель её не открывал — 1
//     (свидетельств пролистывания нет);
//   - Δt до следующего просмотра ≤ p20 — 0.5; ≥ p80 — 1; иначе 0.75.
//
// Сравнение с p20 выполняется первым, поэтому при p20 == p80 ничья на
// границе трактуется как пролистывание.
func Classify(stories []models.StoryViews, viewerID int64, thr Thresholds) ([]models.EngagementPoint, error) {
	if !knownViewer(stories, viewerID) {
		return nil, ErrUnknownViewer
	}

	points := make([]models.EngagementPoint, 0, len(stories))
	for i, st := range stories {
		pt := models.EngagementPoint{Story: st.Story, Score: ScoreNotViewed}

		rec, ok := st.Views[viewerID]
		if !ok || !rec.Viewed() {
			points = append(points, pt)
			continue
		}

		pt.Viewed = true
		pt.Latency = rec.ViewedAt.Sub(st.Story.PublishedAt)

		nextView, hasNext := nextViewedAt(stories, viewerID, i)
		switch {
		case !hasNext:
			pt.Score = ScoreWatchedFully
		default:
			gap := nextView.Sub(rec.ViewedAt).Seconds()
			switch {
			case gap <= thr.SwipeMax:
				pt.Score = ScoreSwipedPast
			case gap >= thr.FullMin:
				pt.Score = ScoreWatchedFully
			default:
				pt.Score = ScorePartiallyWatched
			}
		}
		points = append(points, pt)
	}
	return points, nil
}

// Profile выполняет весь конвейер: общая выборка, пороги, классификация.
// Выборка строится по просмотрам всех зрителей набора, а не только целевого,
// поэтому зритель без единого просмотра получает нули при живых порогах.
func Profile(stories []models.StoryViews, viewerID int64) (*Result, error) {
	if !knownViewer(stories, viewerID) {
		return nil, ErrUnknownViewer
	}
	sample := GapSample(stories)
	thr, err := ComputeThresholds(sample)
	if err != nil {
		return nil, err
	}
	points, err := Classify(stories, viewerID, thr)
	if err != nil {
		return nil, err
	}
	return &Result{Points: points, Thresholds: thr, SampleSize: len(sample)}, nil
}

// ScoreLabel возвращает английскую подпись балла вовлечённости; перевод
// выполняет вызывающая сторона.
func ScoreLabel(score float64) string {
	switch score {
	case ScoreSwipedPast:
		return "swiped past"
	case ScorePartiallyWatched:
		return "partially watched"
	case ScoreWatchedFully:
		return "likely watched fully"
	default:
		return "not viewed"
	}
}

// knownViewer проверяет, встречается ли зритель хотя бы в одной записи,
// пусть даже без отметки о просмотре.
func knownViewer(stories []models.StoryViews, viewerID int64) bool {
	for _, st := range stories {
		if _, ok := st.Views[viewerID]; ok {
			return true
		}
	}
	return false
}

// nextViewedAt ищет время просмотра следующей истории (n+1) тем же зрителем.
func nextViewedAt(stories []models.StoryViews, viewerID int64, i int) (time.Time, bool) {
	if i+1 >= len(stories) {
		return time.Time{}, false
	}
	rec, present := stories[i+1].Views[viewerID]
	if !present || !rec.Viewed() {
		return time.Time{}, false
	}
	return rec.ViewedAt, true
}
