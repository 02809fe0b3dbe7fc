package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the metered user under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// TierID records the subscription tier under the key "tier_id".
func TierID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("tier_id", id)
}

// Period records a billing period ("2006-01") under the key "billing_period".
func Period(p string) slog.Attr {
	if p == "" {
		return slog.Attr{}
	}
	return slog.String("billing_period", p)
}

// ChargeID records an overage charge identifier under the key "charge_id".
// If id is nil, it returns an empty Attr.
func ChargeID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("charge_id", id)
}

// Quantity records a number of metered units under the key "quantity".
func Quantity(n int64) slog.Attr {
	return slog.Int64("quantity", n)
}

// Feature records a schema-dependent feature name under the key "feature".
func Feature(name string) slog.Attr {
	return slog.String("feature", name)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// RetryCount records the attempt number under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Alert marks a record that operations must act on, under the key "alert".
func Alert(name string) slog.Attr {
	return slog.String("alert", name)
}
