package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/alexhooketh/tg-stories-viewers-profiler/models"
)

// Максимум элементов на страницу, который отдаёт API историй.
const pageLimit = 100

// FetchPinnedStories возвращает все закреплённые (highlight) истории своего
// профиля, перелистывая страницы по идентификатору последней истории.
// Результат отсортирован по времени публикации, старые первыми.
func FetchPinnedStories(ctx context.Context, api *tg.Client) ([]models.Story, error) {
	var stories []models.Story
	offsetID := 0
	for {
		res, err := api.StoriesGetPinnedStories(ctx, &tg.StoriesGetPinnedStoriesRequest{
			Peer:     &tg.InputPeerSelf{},
			OffsetID: offsetID,
			Limit:    pageLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("stories.getPinnedStories: %w", err)
		}
		if len(res.Stories) == 0 {
			break
		}
		stories = append(stories, CollectStories(res.Stories)...)
		// Смещение считается по последнему элементу страницы, включая
		// урезанные и удалённые: иначе пагинация зациклится.
		offsetID = res.Stories[len(res.Stories)-1].GetID()
		if len(res.Stories) < pageLimit {
			break
		}
	}

	sort.SliceStable(stories, func(i, j int) bool {
		if stories[i].PublishedAt.Equal(stories[j].PublishedAt) {
			return stories[i].ID < stories[j].ID
		}
		return stories[i].PublishedAt.Before(stories[j].PublishedAt)
	})
	return stories, nil
}

// FetchStoryViewers собирает полный список просмотров одной истории,
// перелистывая страницы по токену next_offset.
func FetchStoryViewers(ctx context.Context, api *tg.Client, story models.Story) (models.StoryViews, error) {
	views := make(map[int64]models.ViewRecord)
	offset := ""
	for {
		res, err := api.StoriesGetStoryViewsList(ctx, &tg.StoriesGetStoryViewsListRequest{
			Peer:   &tg.InputPeerSelf{},
			ID:     story.ID,
			Offset: offset,
			Limit:  pageLimit,
		})
		if err != nil {
			return models.StoryViews{}, fmt.Errorf("stories.getStoryViewsList (история %d): %w", story.ID, err)
		}
		CollectViews(views, res.Views, res.Users, story)
		next, ok := res.GetNextOffset()
		if !ok || next == "" {
			break
		}
		offset = next
	}
	return models.StoryViews{Story: story, Views: views}, nil
}

// CollectStories отбирает полноценные истории из ответа API.
// Удалённые и урезанные элементы пропускаются: у них нет времени публикации.
func CollectStories(items []tg.StoryItemClass) []models.Story {
	var out []models.Story
	for _, it := range items {
		st, ok := it.(*tg.StoryItem)
		if !ok {
			continue
		}
		out = append(out, models.Story{
			ID:          st.ID,
			PublishedAt: time.Unix(int64(st.Date), 0).UTC(),
		})
	}
	return out
}

// CollectViews переносит просмотры одной страницы ответа в общую карту.
// Учитываются только обычные просмотры: пересылки и репосты истории не несут
// времени просмотра. Имя и username зрителя берутся из списка пользователей
// той же страницы.
func CollectViews(dst map[int64]models.ViewRecord, items []tg.StoryViewClass, users []tg.UserClass, story models.Story) {
	profiles := make(map[int64]*tg.User, len(users))
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			profiles[user.ID] = user
		}
	}

	for _, it := range items {
		view, ok := it.(*tg.StoryView)
		if !ok {
			continue
		}
		rec := models.ViewRecord{
			StoryID:     story.ID,
			ViewerID:    view.UserID,
			ViewedAt:    time.Unix(int64(view.Date), 0).UTC(),
			PublishedAt: story.PublishedAt,
		}
		if u, ok := profiles[view.UserID]; ok {
			rec.FullName = strings.TrimSpace(u.FirstName + " " + u.LastName)
			rec.Username = u.Username
		}
		dst[view.UserID] = rec
	}
}
