package models

import "time"

// EngagementPoint — итог оценки одной истории для выбранного зрителя.
// Score принимает значения 0, 0.5, 0.75 или 1; Latency заполнена только
// когда Viewed == true и означает задержку между публикацией и просмотром.
type EngagementPoint struct {
	Story   Story         `json:"story"`
	Score   float64       `json:"score"`
	Viewed  bool          `json:"viewed"`
	Latency time.Duration `json:"latency"`
}

// ViewerProfile — имя и username зрителя, восстановленные из записей сбора.
// Используется в заголовке графика.
type ViewerProfile struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
}
