package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// LoadFrom reads the configuration at path. Missing settings are filled
// with defaults and the result is validated.
func LoadFrom(path string) (*Config, error) {
	data, err := readFile(path, kindConfig,
		"Run 'barcin serve' or any other command once to create the default configuration")
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("JSON parse error: %v", err),
			Hint:    "Restore from " + path + ".bak if available",
		}
	}

	cfg.fillDefaults()
	if err := Validate(&cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: err.Error(),
			Hint:    "Fix the listed fields or delete the file to regenerate defaults",
		}
	}
	return &cfg, nil
}

// readFile reads a config or lexicon file, turning missing files and
// permission problems into errors with a suggested fix.
func readFile(path, kind, notFoundHint string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return data, nil
	case os.IsNotExist(err):
		return nil, &ConfigNotFoundError{Path: path, Kind: kind, Hint: notFoundHint}
	case os.IsPermission(err):
		return nil, &PermissionError{
			Path:    path,
			Kind:    kind,
			Op:      "read",
			Fix:     readPermissionFix(path),
			Details: permissionDetails(path),
		}
	default:
		return nil, fmt.Errorf("failed to read %s: %w", kind, err)
	}
}

func readPermissionFix(path string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("Right-click %s → Properties → Security → Edit permissions", path)
	}
	return fmt.Sprintf("Run: chmod 644 %s", path)
}

func permissionDetails(path string) string {
	if runtime.GOOS == "windows" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Current permissions: %04o", info.Mode().Perm())
}
