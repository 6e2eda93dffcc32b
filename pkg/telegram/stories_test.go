package telegram

import (
	"testing"
	"time"

	"github.com/gotd/td/tg"

	"github.com/alexhooketh/tg-stories-viewers-profiler/models"
)

// TestCollectStories проверяет отбор историй: удалённые и урезанные
// элементы ответа пропускаются.
func TestCollectStories(t *testing.T) {
	items := []tg.StoryItemClass{
		&tg.StoryItem{ID: 1, Date: 1721124000},
		&tg.StoryItemDeleted{ID: 2},
		&tg.StoryItemSkipped{ID: 3, Date: 1721124100},
		&tg.StoryItem{ID: 4, Date: 1721124200},
	}

	got := CollectStories(items)
	if len(got) != 2 {
		t.Fatalf("ожидали 2 истории, получили %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 4 {
		t.Errorf("идентификаторы: получено %d и %d", got[0].ID, got[1].ID)
	}
	want := time.Unix(1721124000, 0).UTC()
	if !got[0].PublishedAt.Equal(want) {
		t.Errorf("время публикации: ожидалось %v, получено %v", want, got[0].PublishedAt)
	}
}

// TestCollectViews проверяет перенос страницы просмотров в карту:
// пересылки и репосты пропускаются, имя зрителя берётся из списка
// пользователей страницы.
func TestCollectViews(t *testing.T) {
	story := models.Story{ID: 7, PublishedAt: time.Unix(1721124000, 0).UTC()}
	items := []tg.StoryViewClass{
		&tg.StoryView{UserID: 100, Date: 1721124300},
		&tg.StoryViewPublicForward{},
		&tg.StoryView{UserID: 200, Date: 1721124400},
	}
	users := []tg.UserClass{
		&tg.User{ID: 100, FirstName: "Иван", LastName: "Петров", Username: "ivan"},
		&tg.UserEmpty{ID: 300},
		&tg.User{ID: 200, FirstName: "Анна"},
	}

	dst := make(map[int64]models.ViewRecord)
	CollectViews(dst, items, users, story)

	if len(dst) != 2 {
		t.Fatalf("ожидали 2 записи, получили %d", len(dst))
	}
	rec := dst[100]
	if rec.FullName != "Иван Петров" || rec.Username != "ivan" {
		t.Errorf("зритель 100: %+v", rec)
	}
	if rec.StoryID != 7 || !rec.PublishedAt.Equal(story.PublishedAt) {
		t.Errorf("история в записи заполнена неверно: %+v", rec)
	}
	if !rec.ViewedAt.Equal(time.Unix(1721124300, 0).UTC()) {
		t.Errorf("время просмотра: %v", rec.ViewedAt)
	}
	if dst[200].FullName != "Анна" {
		t.Errorf("имя без фамилии должно быть без хвостового пробела: %q", dst[200].FullName)
	}
}

// TestCollectViews_Duplicate проверяет, что повторная запись того же зрителя
// перекрывает предыдущую: при пагинации побеждает последняя страница.
func TestCollectViews_Duplicate(t *testing.T) {
	story := models.Story{ID: 1, PublishedAt: time.Unix(1721124000, 0).UTC()}
	dst := make(map[int64]models.ViewRecord)

	CollectViews(dst, []tg.StoryViewClass{&tg.StoryView{UserID: 5, Date: 1721124100}}, nil, story)
	CollectViews(dst, []tg.StoryViewClass{&tg.StoryView{UserID: 5, Date: 1721124500}}, nil, story)

	if len(dst) != 1 {
		t.Fatalf("ожидали одну запись, получили %d", len(dst))
	}
	if !dst[5].ViewedAt.Equal(time.Unix(1721124500, 0).UTC()) {
		t.Errorf("должна победить последняя запись: %v", dst[5].ViewedAt)
	}
}
