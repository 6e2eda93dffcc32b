// Package server — HTTP-витрина над папкой результатов: списки запусков,
// сводки и графики по требованию. Витрина только читает: единственным
// писателем остаётся сборщик.
package server

import (
	"bytes"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/httputil"
	"github.com/alexhooketh/tg-stories-viewers-profiler/models"
	"github.com/alexhooketh/tg-stories-viewers-profiler/pkg/chart"
	"github.com/alexhooketh/tg-stories-viewers-profiler/pkg/engagement"
	"github.com/alexhooketh/tg-stories-viewers-profiler/pkg/storage"
)

type Server struct {
	store *storage.RunStore
}

func New(store *storage.RunStore) *Server {
	return &Server{store: store}
}

// Router настраивает маршруты витрины.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/runs", s.handleRuns)
	r.GET("/runs/:run", s.handleRunSummary)
	r.GET("/runs/:run/viewers/:id/chart", s.handleViewerChart)

	log.Printf("[ROUTER] Routes initialized:")
	log.Printf("[ROUTER] GET /health")
	log.Printf("[ROUTER] GET /runs")
	log.Printf("[ROUTER] GET /runs/:run")
	log.Printf("[ROUTER] GET /runs/:run/viewers/:id/chart")

	return r
}

func (s *Server) handleRuns(c *gin.Context) {
	runs, err := s.store.ListRuns()
	if err != nil {
		httputil.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// storySummary — одна история в сводке запуска.
type storySummary struct {
	StoryID     int    `json:"story_id"`
	PublishDate string `json:"publish_date"`
	Viewers     int    `json:"viewers"`
}

func (s *Server) handleRunSummary(c *gin.Context) {
	stories, ok := s.loadRun(c)
	if !ok {
		return
	}

	summaries := make([]storySummary, 0, len(stories))
	distinct := make(map[int64]struct{})
	for _, st := range stories {
		summaries = append(summaries, storySummary{
			StoryID:     st.Story.ID,
			PublishDate: st.Story.PublishedAt.Format(time.RFC3339),
			Viewers:     len(st.Views),
		})
		for viewerID := range st.Views {
			distinct[viewerID] = struct{}{}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"run":           c.Param("run"),
		"stories":       summaries,
		"viewer_count":  len(distinct),
		"stories_count": len(summaries),
	})
}

func (s *Server) handleViewerChart(c *gin.Context) {
	viewerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "некорректный идентификатор зрителя")
		return
	}

	stories, ok := s.loadRun(c)
	if !ok {
		return
	}

	res, err := engagement.Profile(stories, viewerID)
	switch {
	case errors.Is(err, engagement.ErrUnknownViewer):
		httputil.RespondError(c, http.StatusNotFound, "зритель не найден в записях запуска")
		return
	case errors.Is(err, engagement.ErrInsufficientGaps):
		httputil.RespondError(c, http.StatusUnprocessableEntity, "недостаточно данных для порогов")
		return
	case err != nil:
		httputil.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	profile, found := storage.LookupViewer(stories, viewerID)
	if !found {
		profile = models.ViewerProfile{ID: viewerID}
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf, res.Points, chart.Options{Profile: profile}); err != nil {
		httputil.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// loadRun читает папку запуска из параметра маршрута. Ошибки отвечает сам:
// вызывающему достаточно проверить ok.
func (s *Server) loadRun(c *gin.Context) ([]models.StoryViews, bool) {
	dir, err := s.store.ResolveDir(c.Param("run"))
	if err != nil {
		httputil.RespondError(c, http.StatusNotFound, "запуск не найден")
		return nil, false
	}
	stories, err := storage.LoadRun(dir)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
		httputil.RespondError(c, status, err.Error())
		return nil, false
	}
	return stories, true
}
