package models

import "time"

// Landmark — подпись к вертикальной отметке на графике: момент времени
// и короткая метка события ("началась ссора", "уехал" и т.п.).
type Landmark struct {
	At    time.Time `json:"at"`
	Label string    `json:"label"`
}
