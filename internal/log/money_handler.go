package log

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// MoneyHandler renders decimal.Decimal attribute values as fixed two-place
// strings so amounts read the same in text and JSON output.
type MoneyHandler struct {
	inner slog.Handler
}

func NewMoneyHandler(inner slog.Handler) *MoneyHandler {
	return &MoneyHandler{inner: inner}
}

func (h *MoneyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *MoneyHandler) Handle(ctx context.Context, record slog.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fallback := slog.NewRecord(record.Time, slog.LevelError, "money handler panic recovered", record.PC)
			fallback.AddAttrs(slog.String("message", record.Message))
			err = h.inner.Handle(ctx, fallback)
		}
	}()

	formatted := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		formatted.AddAttrs(formatAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, formatted)
}

func (h *MoneyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	formatted := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		formatted = append(formatted, formatAttr(attr))
	}
	return &MoneyHandler{inner: h.inner.WithAttrs(formatted)}
}

func (h *MoneyHandler) WithGroup(name string) slog.Handler {
	return &MoneyHandler{inner: h.inner.WithGroup(name)}
}

func formatAttr(attr slog.Attr) slog.Attr {
	value := attr.Value.Resolve()

	switch value.Kind() {
	case slog.KindGroup:
		group := value.Group()
		formatted := make([]slog.Attr, 0, len(group))
		for _, nested := range group {
			formatted = append(formatted, formatAttr(nested))
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(formatted...)}
	case slog.KindAny:
		switch v := value.Any().(type) {
		case decimal.Decimal:
			return slog.String(attr.Key, v.StringFixed(2))
		case *decimal.Decimal:
			if v == nil {
				return slog.String(attr.Key, "")
			}
			return slog.String(attr.Key, v.StringFixed(2))
		}
	}
	return slog.Attr{Key: attr.Key, Value: value}
}
