package logger

import (
	"log/slog"
	"time"
)

func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

func AccountID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("account_id", id)
}

func Feature(id string) slog.Attr {
	return slog.String("feature", id)
}

func Tier(tier string) slog.Attr {
	return slog.String("tier", tier)
}

// Verdict logs an entitlement decision. reason is omitted when empty.
func Verdict(verdict, reason string) slog.Attr {
	if reason == "" {
		return slog.Group("verdict", slog.String("result", verdict))
	}
	return slog.Group("verdict", slog.String("result", verdict), slog.String("reason", reason))
}

func Usage(used, allowance int64) slog.Attr {
	return slog.Group("usage", slog.Int64("used", used), slog.Int64("allowance", allowance))
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
