package verification

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/student-portal/student_portal/internal/logging"
)

var (
	// ErrMissingHandle is returned when a code is requested without a handle.
	ErrMissingHandle = errors.New("handle is required")

	// ErrMissingInput is returned when a code check lacks the handle or the code.
	ErrMissingInput = errors.New("handle and code are required")

	// ErrDeliveryFailed covers every failed exchange with the bot service and
	// every refusal to send a code.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrInvalidCode is returned when the bot service rejects a code.
	ErrInvalidCode = errors.New("invalid code")
)

const (
	msgSendFailed   = "Failed to send verification code"
	msgVerifyFailed = "Failed to verify code"
	msgInvalidCode  = "Invalid verification code"
)

// Error carries a failure category and the human-readable reason.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Coordinator relays verification requests to the bot service. It keeps no
// local state: success is reported only when the bot explicitly says so.
type Coordinator struct {
	bot    Bot
	logger *slog.Logger
}

// NewCoordinator builds a coordinator around bot.
func NewCoordinator(bot Bot, logger *slog.Logger) *Coordinator {
	return &Coordinator{bot: bot, logger: logging.Component(logger, "verification")}
}

// RequestCode asks the bot service to send a code to handle.
func (c *Coordinator) RequestCode(ctx context.Context, handle string) error {
	if strings.TrimSpace(handle) == "" {
		return ErrMissingHandle
	}

	reply, err := c.bot.SendCode(ctx, handle)
	if err != nil {
		c.logger.Error("send code exchange failed", slog.String("handle", handle), slog.Any("error", err))
		return &Error{Kind: ErrDeliveryFailed, Message: msgSendFailed, Cause: err}
	}
	if !reply.Success {
		c.logger.Warn("send code refused", slog.String("handle", handle), slog.String("reason", reply.Error))
		return &Error{Kind: ErrDeliveryFailed, Message: orDefault(reply.Error, msgSendFailed)}
	}
	c.logger.Info("verification code sent", slog.String("handle", handle))
	return nil
}

// VerifyCode asks the bot service whether code is valid for handle.
func (c *Coordinator) VerifyCode(ctx context.Context, handle, code string) error {
	if strings.TrimSpace(handle) == "" || strings.TrimSpace(code) == "" {
		return ErrMissingInput
	}

	c.logger.Debug("verifying code", slog.String("handle", handle), slog.String("code", code))
	reply, err := c.bot.VerifyCode(ctx, handle, code)
	if err != nil {
		c.logger.Error("verify code exchange failed", slog.String("handle", handle), slog.Any("error", err))
		return &Error{Kind: ErrDeliveryFailed, Message: msgVerifyFailed, Cause: err}
	}
	if !reply.Success {
		c.logger.Warn("verification code rejected", slog.String("handle", handle), slog.String("reason", reply.Error))
		return &Error{Kind: ErrInvalidCode, Message: orDefault(reply.Error, msgInvalidCode)}
	}
	c.logger.Info("verification code accepted", slog.String("handle", handle))
	return nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
