// Package i18n переводит сообщения консоли и подписи графика.
// Ключ сообщения — его английский текст; словари лежат в locales/<код>.json
// и вшиты в бинарник. Незнакомый язык или отсутствующий ключ означают,
// что сообщение выводится как есть.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Поддерживаемые языки. Первый — запасной вариант без словаря.
var (
	supported = []language.Tag{language.English, language.Russian}
	codes     = []string{"en", "ru"}
	matcher   = language.NewMatcher(supported)
)

var (
	mu       sync.Mutex
	loaded   bool
	messages map[string]string
)

// DetectLocale выбирает код языка: сначала APP_LANG, затем системный LANG
// (значения вида "ru_RU.UTF-8" допустимы). Непонятное значение даёт "en".
func DetectLocale(appLang, sysLang string) string {
	raw := appLang
	if raw == "" {
		raw = sysLang
	}
	if raw == "" {
		return codes[0]
	}
	raw = strings.SplitN(raw, ".", 2)[0]
	tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
	if err != nil {
		return codes[0]
	}
	_, idx, _ := matcher.Match(tag)
	return codes[idx]
}

// SetLocale загружает словарь для указанного кода языка.
// Отсутствующий или битый словарь не ошибка: сообщения останутся английскими.
func SetLocale(code string) {
	mu.Lock()
	defer mu.Unlock()
	loaded = true
	messages = loadCatalog(code)
}

// T переводит сообщение и подставляет аргументы в плейсхолдеры вида {name}.
// Аргументы передаются парами: имя плейсхолдера, значение.
func T(msg string, args ...any) string {
	tpl := lookup(msg)
	for i := 0; i+1 < len(args); i += 2 {
		name, ok := args[i].(string)
		if !ok {
			continue
		}
		tpl = strings.ReplaceAll(tpl, "{"+name+"}", fmt.Sprint(args[i+1]))
	}
	return tpl
}

func lookup(msg string) string {
	mu.Lock()
	defer mu.Unlock()
	if !loaded {
		loaded = true
		messages = loadCatalog(DetectLocale(os.Getenv("APP_LANG"), os.Getenv("LANG")))
	}
	if tpl, ok := messages[msg]; ok {
		return tpl
	}
	return msg
}

func loadCatalog(code string) map[string]string {
	data, err := localeFS.ReadFile("locales/" + code + ".json")
	if err != nil {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
