package models

import "time"

// Story описывает одну закреплённую (highlight) историю аккаунта.
// Идентификатор и время публикации приходят из Telegram API;
// архивные истории недоступны и в выборку не попадают.
type Story struct {
	ID          int       `json:"id"`
	PublishedAt time.Time `json:"published_at"`
}

// ViewRecord — одна строка результата сбора: просмотр истории конкретным
// зрителем. Нулевой ViewedAt означает, что зритель историю не открывал.
type ViewRecord struct {
	StoryID     int       `json:"story_id"`
	ViewerID    int64     `json:"viewer_id"`
	FullName    string    `json:"full_name"`
	Username    string    `json:"username"`
	ViewedAt    time.Time `json:"viewed_at"`
	PublishedAt time.Time `json:"published_at"`
}

// Viewed сообщает, открывал ли зритель историю.
func (r ViewRecord) Viewed() bool {
	return !r.ViewedAt.IsZero()
}

// StoryViews — история вместе со всеми её просмотрами.
// Ключ карты — идентификатор зрителя: дубликаты строк схлопываются,
// последняя прочитанная строка побеждает.
type StoryViews struct {
	Story Story
	Views map[int64]ViewRecord
}
