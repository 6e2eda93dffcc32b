// Package config читает настройки из переменных окружения.
// Файл .env подхватывается автоматически, как в остальных наших утилитах,
// чтобы не таскать ключи API через аргументы командной строки.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Proxy описывает SOCKS5-прокси, через который ходит MTProto-клиент.
// Логин и пароль не обязательны.
type Proxy struct {
	Host     string
	Port     int
	Login    string
	Password string
}

// Addr возвращает адрес прокси в виде host:port.
func (p Proxy) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// Config — все настройки обеих задач. Поля Telegram обязательны только
// для сборщика; визуализатору достаточно ResultsDir и языка.
type Config struct {
	APIID       int
	APIHash     string
	Phone       string
	Password    string // пароль 2FA, пустой если облачный пароль не установлен
	SessionFile string
	ResultsDir  string
	Proxy       *Proxy
}

// Load загружает .env (если он есть) и собирает конфигурацию из окружения.
// Ошибки возможны только при разборе значений: отсутствие переменных
// проверяется отдельно через RequireTelegram, потому что визуализатору
// ключи API не нужны.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Phone:       os.Getenv("PHONE"),
		Password:    os.Getenv("PASSWORD"),
		SessionFile: envOr("SESSION", "session.json"),
		ResultsDir:  envOr("RESULTS_DIR", "results"),
		APIHash:     os.Getenv("API_HASH"),
	}

	if raw := os.Getenv("API_ID"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("некорректный API_ID %q: %w", raw, err)
		}
		cfg.APIID = id
	}

	if raw := os.Getenv("PROXY"); raw != "" {
		p, err := ParseProxy(raw)
		if err != nil {
			return Config{}, err
		}
		cfg.Proxy = p
	}

	return cfg, nil
}

// RequireTelegram проверяет поля, без которых сборщик не может работать.
// Вызывается до любых обращений к сети и диску.
func (c Config) RequireTelegram() error {
	if c.APIID == 0 {
		return fmt.Errorf("не задан API_ID")
	}
	if c.APIHash == "" {
		return fmt.Errorf("не задан API_HASH")
	}
	return nil
}

// ParseProxy разбирает строку вида socks5://[login:password@]host:port.
func ParseProxy(raw string) (*Proxy, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("некорректный PROXY %q: %w", raw, err)
	}
	if u.Scheme != "socks5" {
		return nil, fmt.Errorf("PROXY: поддерживается только socks5, получено %q", u.Scheme)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("PROXY: не указан адрес или порт в %q", raw)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return nil, fmt.Errorf("PROXY: некорректный порт %q: %w", u.Port(), err)
	}

	p := &Proxy{Host: u.Hostname(), Port: port}
	if u.User != nil {
		p.Login = u.User.Username()
		p.Password, _ = u.User.Password()
	}
	return p, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
