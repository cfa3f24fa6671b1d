package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
)

// Save validates cfg and writes it to path. The previous file is kept as
// path.bak and the new content replaces it atomically.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := validateJSON(data); err != nil {
		return &InvalidConfigError{
			Path:    path,
			Message: err.Error(),
			Hint:    "Check user roles and settings and try again",
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := checkWritePermission(path); err != nil {
		return err
	}
	if err := backupConfig(path); err != nil {
		slog.Warn("failed to create config backup", "path", path, "err", err)
	}
	return atomicWrite(path, data)
}

func backupConfig(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path+".bak", data, 0600)
}

// validateJSON checks the bytes about to be written decode back into a
// valid configuration.
func validateJSON(data []byte) error {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}
	if cfg.Users == nil {
		return fmt.Errorf("missing 'users' field")
	}
	cfg.fillDefaults()
	return Validate(&cfg)
}

// atomicWrite writes to a uniquely named temp file in the target directory,
// syncs it and renames it over path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// checkWritePermission verifies the directory and an existing file are
// writable before anything is touched.
func checkWritePermission(path string) error {
	dir := filepath.Dir(path)
	if err := probeDirectory(dir); err != nil {
		return &PermissionError{
			Path:    dir,
			Op:      "write",
			Fix:     writePermissionFix(dir),
			Details: "Cannot write to config directory",
		}
	}

	if _, err := os.Stat(path); err != nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return &PermissionError{
			Path:    path,
			Op:      "write",
			Fix:     writePermissionFix(path),
			Details: "Config file is read-only",
		}
	}
	return f.Close()
}

func probeDirectory(dir string) error {
	probe := filepath.Join(dir, ".write-test-"+uuid.NewString()[:8])
	f, err := os.Create(probe)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(probe)
}

func writePermissionFix(path string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("Right-click %s → Properties → Security → Grant 'Write' permission", path)
	}
	return fmt.Sprintf("Run: chmod u+w %s", path)
}
