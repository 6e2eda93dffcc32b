// Package common содержит мелкие вспомогательные функции, общие для задач.
package common

import (
	"context"
	"math/rand"
	"time"
)

// WaitWithCancellation выдерживает паузу в случайном диапазоне секунд между
// обращениями к API историй, чтобы не упираться во flood-лимиты, и регулярно
// проверяет контекст: долгое ожидание должно прерываться по требованию.
func WaitWithCancellation(ctx context.Context, delayRange [2]int) error {
	delay := rand.Intn(delayRange[1]-delayRange[0]+1) + delayRange[0]
	for remaining := delay; remaining > 0; {
		step := 5
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			// Возвращаем ошибку контекста, чтобы прерывание обработали выше по стеку.
			return ctx.Err()
		case <-time.After(time.Duration(step) * time.Second):
		}
		remaining -= step
	}
	return nil
}
