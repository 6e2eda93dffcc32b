// Package telegram содержит MTProto-клиент сборщика: создание клиента,
// авторизацию и обход историй с их просмотрами.
package telegram

import (
	"fmt"
	"log"

	"golang.org/x/net/proxy"

	"github.com/gotd/td/session"
	gotd "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"go.uber.org/zap"

	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/config"
)

// NewClient создаёт клиент Telegram с файловым хранилищем сессии.
// Сессия переживает перезапуски, поэтому код подтверждения спрашивается
// только при первом входе. При debug включаются подробные логи клиента.
func NewClient(cfg config.Config, debug bool) (*gotd.Client, error) {
	opts := gotd.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionFile},
	}

	if debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("логгер отладки: %w", err)
		}
		opts.Logger = logger
	}

	if cfg.Proxy != nil {
		var auth *proxy.Auth
		if cfg.Proxy.Login != "" || cfg.Proxy.Password != "" {
			auth = &proxy.Auth{User: cfg.Proxy.Login, Password: cfg.Proxy.Password}
		}
		d, err := proxy.SOCKS5("tcp", cfg.Proxy.Addr(), auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("proxy dialer: %w", err)
		}
		dc, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("proxy dialer missing context")
		}
		opts.Resolver = dcs.Plain(dcs.PlainOptions{Dial: dc.DialContext})
		log.Printf("[PROXY] подключение через %s", cfg.Proxy.Addr())
	}

	return gotd.NewClient(cfg.APIID, cfg.APIHash, opts), nil
}
