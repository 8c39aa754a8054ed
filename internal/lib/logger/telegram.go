package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Notifier delivers a plain-text alert to the admin chat.
type Notifier interface {
	SendMessage(msg string)
}

// telegramHandler mirrors records at or above minLevel to the admin
// Telegram chat while delegating everything to the wrapped handler.
type telegramHandler struct {
	next     slog.Handler
	notifier Notifier
	minLevel slog.Level
	attrs    []slog.Attr
}

// SetupTelegramHandler wraps the logger so that records at or above
// minLevel are also sent to the Telegram admin chat.
func SetupTelegramHandler(log *slog.Logger, notifier Notifier, minLevel slog.Level) *slog.Logger {
	return slog.New(&telegramHandler{
		next:     log.Handler(),
		notifier: notifier,
		minLevel: minLevel,
	})
}

func (h *telegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level) || level >= h.minLevel
}

func (h *telegramHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.minLevel && h.notifier != nil {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("[%s] %s", r.Level, r.Message))
		for _, a := range h.attrs {
			sb.WriteString(fmt.Sprintf("\n%s: %s", a.Key, a.Value.String()))
		}
		r.Attrs(func(a slog.Attr) bool {
			sb.WriteString(fmt.Sprintf("\n%s: %s", a.Key, a.Value.String()))
			return true
		})
		// Delivery is best-effort; the notifier logs its own failures.
		go h.notifier.SendMessage(sb.String())
	}
	return h.next.Handle(ctx, r)
}

func (h *telegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &telegramHandler{
		next:     h.next.WithAttrs(attrs),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    merged,
	}
}

func (h *telegramHandler) WithGroup(name string) slog.Handler {
	return &telegramHandler{
		next:     h.next.WithGroup(name),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    h.attrs,
	}
}
