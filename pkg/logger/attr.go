package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the identity-store user id under the key "user_id".
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// SandboxID records a remote sandbox id under the key "sandbox_id".
func SandboxID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("sandbox_id", id)
}

// Provider records a sandbox provider name under the key "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Plan records a subscription plan id under the key "plan".
func Plan(id string) slog.Attr {
	return slog.String("plan", id)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
