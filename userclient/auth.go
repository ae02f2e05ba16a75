package userclient

import (
	"context"
	"strings"

	"github.com/celestix/gotgproto"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
)

// terminalAuthConversator answers login prompts on the controlling terminal.
type terminalAuthConversator struct {
	ctx   context.Context
	phone string
}

func (t *terminalAuthConversator) ask(title, description string, secret bool) (string, error) {
	var value string
	input := huh.NewInput().
		Title(title).
		Description(description).
		Value(&value).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errEmptyInput
			}
			return nil
		})
	if secret {
		input = input.EchoMode(huh.EchoModePassword)
	}
	if err := huh.NewForm(huh.NewGroup(input)).RunWithContext(t.ctx); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func (t *terminalAuthConversator) AskPhoneNumber() (string, error) {
	if t.phone != "" {
		return t.phone, nil
	}
	return t.ask("Phone number", "International format, e.g. +15551234567", false)
}

func (t *terminalAuthConversator) AskCode() (string, error) {
	return t.ask("Login code", "The code Telegram sent to your other sessions", false)
}

func (t *terminalAuthConversator) AskPassword() (string, error) {
	return t.ask("Two-step verification password", "", true)
}

func (t *terminalAuthConversator) AuthStatus(status gotgproto.AuthStatus) {
	logger := log.FromContext(t.ctx)
	switch status.Event {
	case gotgproto.AuthStatusPhoneRetrial:
		// the configured number was rejected, ask on the terminal instead
		t.phone = ""
		logger.Warn("Phone number rejected", "attempts_left", status.AttemptsLeft)
	case gotgproto.AuthStatusPasswordRetrial:
		logger.Warn("Wrong password", "attempts_left", status.AttemptsLeft)
	case gotgproto.AuthStatusPhoneFailed, gotgproto.AuthStatusPasswordFailed:
		logger.Error("Login failed", "event", status.Event)
	default:
		logger.Debug("Auth status", "event", status.Event)
	}
}
