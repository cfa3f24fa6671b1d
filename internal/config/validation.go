package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

var validRoles = map[string]bool{RoleAdmin: true, RoleUser: true}

// Validate checks user roles and settings. All problems are reported
// together.
func Validate(cfg *Config) error {
	var errs []error

	ids := make([]string, 0, len(cfg.Users))
	for id := range cfg.Users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		u := cfg.Users[id]
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Errorf("user with empty id"))
			continue
		}
		if u == nil || !validRoles[u.Role] {
			role := ""
			if u != nil {
				role = u.Role
			}
			errs = append(errs, fmt.Errorf("user '%s': unknown role %q (want admin or user)", id, role))
		}
	}

	if s := cfg.Settings; s != nil {
		positive := []struct {
			name  string
			value int
		}{
			{"retentionDays", s.RetentionDays},
			{"generativeTimeoutSeconds", s.GenerativeTimeoutSeconds},
			{"webTimeoutSeconds", s.WebTimeoutSeconds},
			{"similarityK", s.SimilarityK},
			{"contextMaxLength", s.ContextMaxLength},
		}
		for _, p := range positive {
			if p.value <= 0 {
				errs = append(errs, fmt.Errorf("settings.%s must be positive, got %d", p.name, p.value))
			}
		}
		if s.UpstreamRatePerSecond <= 0 {
			errs = append(errs, fmt.Errorf("settings.upstreamRatePerSecond must be positive"))
		}
		if _, err := ParseLogLevel(s.LogLevel); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParseLogLevel maps a settings log level onto slog.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("settings.logLevel: unknown level %q", level)
}
