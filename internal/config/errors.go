package config

import (
	"fmt"
	"io/fs"
)

// File kinds named in error messages.
const (
	kindConfig  = "config"
	kindLexicon = "lexicon"
)

func kindOr(kind string) string {
	if kind == "" {
		return kindConfig
	}
	return kind
}

// PermissionError is returned when a config or lexicon file cannot be
// read or written. It matches fs.ErrPermission.
type PermissionError struct {
	Path    string
	Kind    string
	Op      string // "read" or "write"
	Fix     string
	Details string
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("permission denied (cannot %s %s): %s\n", e.Op, kindOr(e.Kind), e.Path)
	if e.Details != "" {
		msg += e.Details + "\n"
	}
	msg += "💡 Fix: " + e.Fix
	return msg
}

func (e *PermissionError) Unwrap() error { return fs.ErrPermission }

// ConfigNotFoundError is returned for a missing file. It matches
// fs.ErrNotExist.
type ConfigNotFoundError struct {
	Path string
	Kind string
	Hint string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("%s file not found: %s\n\n💡 %s", kindOr(e.Kind), e.Path, e.Hint)
}

func (e *ConfigNotFoundError) Unwrap() error { return fs.ErrNotExist }

// InvalidConfigError reports a file that parsed badly or failed validation.
type InvalidConfigError struct {
	Path    string
	Kind    string
	Message string
	Hint    string
}

func (e *InvalidConfigError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s\n", kindOr(e.Kind), e.Path)
	if e.Message != "" {
		msg += e.Message + "\n"
	}
	if e.Hint != "" {
		msg += "💡 " + e.Hint
	}
	return msg
}
