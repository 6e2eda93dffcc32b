package telegram

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	gotd "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// AuthHelper реализует auth.UserAuthenticator для единственного аккаунта
// оператора. Телефон и пароль 2FA берутся из конфигурации, а недостающее
// (включая код подтверждения) спрашивается в терминале.
type AuthHelper struct {
	phone    string
	password string
	in       *bufio.Reader
}

func NewAuthHelper(phone, password string) AuthHelper {
	return AuthHelper{phone: phone, password: password, in: bufio.NewReader(os.Stdin)}
}

// SignUp реализует auth.UserAuthenticator (для новых регистраций).
func (a AuthHelper) SignUp(ctx context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, fmt.Errorf("sign up not implemented")
}

func (a AuthHelper) Phone(ctx context.Context) (string, error) {
	if a.phone != "" {
		return a.phone, nil
	}
	return a.prompt("Телефон (в международном формате): ")
}

func (a AuthHelper) Password(ctx context.Context) (string, error) {
	if a.password != "" {
		return a.password, nil
	}
	return a.prompt("Пароль 2FA: ")
}

func (a AuthHelper) Code(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
	return a.prompt("Код подтверждения: ")
}

func (a AuthHelper) AcceptTermsOfService(ctx context.Context, tos tg.HelpTermsOfService) error {
	return nil
}

func (a AuthHelper) prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := a.in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("чтение из терминала: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Authorize проводит вход, если сессия ещё не авторизована.
func Authorize(ctx context.Context, client *gotd.Client, helper AuthHelper) error {
	flow := auth.NewFlow(helper, auth.SendCodeOptions{})
	if err := client.Auth().IfNecessary(ctx, flow); err != nil {
		return fmt.Errorf("authorization error: %w", err)
	}
	return nil
}
