// Package collector реализует задачу сбора: обходит закреплённые истории
// аккаунта и сохраняет их просмотры в папку нового запуска.
//
// Запуск однопроходный и последовательный. Падение посреди обхода оставляет
// уже записанные файлы на диске: отката нет, оператор просто перезапускает
// сбор, и новый запуск получает свою папку.
package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gotd/td/tg"

	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/common"
	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/config"
	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/i18n"
	"github.com/alexhooketh/tg-stories-viewers-profiler/pkg/storage"
	tgclient "github.com/alexhooketh/tg-stories-viewers-profiler/pkg/telegram"
)

// Пауза между историями, секунды. Обход просмотров делает по запросу на
// страницу, и без пауз длинные подборки историй ловят FLOOD_WAIT.
var storyDelayRange = [2]int{1, 3}

// Run выполняет один сбор от начала до конца.
func Run(ctx context.Context, cfg config.Config, debug bool) error {
	if err := cfg.RequireTelegram(); err != nil {
		return fmt.Errorf("конфигурация: %w", err)
	}

	client, err := tgclient.NewClient(cfg, debug)
	if err != nil {
		return err
	}
	store := storage.NewRunStore(cfg.ResultsDir)

	return client.Run(ctx, func(ctx context.Context) error {
		if err := tgclient.Authorize(ctx, client, tgclient.NewAuthHelper(cfg.Phone, cfg.Password)); err != nil {
			return err
		}
		api := tg.NewClient(client)

		stories, err := tgclient.FetchPinnedStories(ctx, api)
		if err != nil {
			return err
		}
		log.Printf("[INFO] %s", i18n.T("Found {count} highlighted stories.", "count", len(stories)))

		run, err := store.CreateRun(time.Now())
		if err != nil {
			return err
		}
		if err := run.WriteManifest(stories); err != nil {
			return err
		}

		for i, st := range stories {
			if i > 0 {
				if err := common.WaitWithCancellation(ctx, storyDelayRange); err != nil {
					return err
				}
			}
			sv, err := tgclient.FetchStoryViewers(ctx, api, st)
			if err != nil {
				log.Printf("[WARN] сбор остановлен на истории %d, уже записанные файлы сохранены", st.ID)
				return err
			}
			if err := run.WriteStoryViews(sv); err != nil {
				return err
			}
			log.Printf("[INFO] %s", i18n.T("Story {id}: {viewer_count} viewers", "id", st.ID, "viewer_count", len(sv.Views)))
		}

		log.Printf("[INFO] %s", i18n.T("Saved run to {dir}", "dir", run.Dir))
		return nil
	})
}
