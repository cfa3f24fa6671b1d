package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "config.json")

	// Test successful atomic write
	data := []byte(`{"test": "data"}`)
	err := atomicWrite(testPath, data)
	if err != nil {
		t.Fatalf("atomicWrite failed: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(testPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Verify temp files were cleaned up
	leftovers, _ := filepath.Glob(filepath.Join(tmpDir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files were not cleaned up: %v", leftovers)
	}

	info, err := os.Stat(testPath)
	if err != nil {
		t.Fatalf("failed to stat config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config permissions incorrect: got %v, want 0600", info.Mode().Perm())
	}

	// Verify content
	readData, err := os.ReadFile(testPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(readData) != string(data) {
		t.Errorf("content mismatch: got %q, want %q", string(readData), string(data))
	}
}

func TestAtomicWriteCreatesDir(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "subdir", "config.json")

	data := []byte(`{"test": "data"}`)
	err := atomicWrite(testPath, data)
	if err != nil {
		t.Fatalf("atomicWrite failed: %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(testPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}
}

func TestBackupConfig(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "config.json")

	// Create original config
	originalData := []byte(`{"original": true}`)
	if err := os.WriteFile(testPath, originalData, 0644); err != nil {
		t.Fatalf("failed to create original config: %v", err)
	}

	// Create backup
	err := backupConfig(testPath)
	if err != nil {
		t.Fatalf("backupConfig failed: %v", err)
	}

	// Verify backup exists
	bakPath := testPath + ".bak"
	bakData, err := os.ReadFile(bakPath)
	if err != nil {
		t.Fatalf("failed to read backup: %v", err)
	}

	// Verify backup content matches original
	if string(bakData) != string(originalData) {
		t.Errorf("backup content mismatch: got %q, want %q", string(bakData), string(originalData))
	}

	// Verify backup permissions
	info, err := os.Stat(bakPath)
	if err != nil {
		t.Fatalf("failed to stat backup: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("backup permissions incorrect: got %v, want 0600", info.Mode().Perm())
	}
}

func TestBackupConfigFirstRun(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "config.json")

	// No original config - should not error
	err := backupConfig(testPath)
	if err != nil {
		t.Fatalf("backupConfig failed on first run: %v", err)
	}

	// Verify no backup was created
	bakPath := testPath + ".bak"
	if _, err := os.Stat(bakPath); !os.IsNotExist(err) {
		t.Error("backup should not exist on first run")
	}
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			data:    []byte(`{"users": {"ayse": {"role": "admin"}}}`),
			wantErr: false,
		},
		{
			name:    "missing users field",
			data:    []byte(`{"settings": {}}`),
			wantErr: true,
			errMsg:  "missing 'users' field",
		},
		{
			name:    "unknown role",
			data:    []byte(`{"users": {"ayse": {"role": "root"}}}`),
			wantErr: true,
			errMsg:  "unknown role",
		},
		{
			name:    "negative retention",
			data:    []byte(`{"users": {}, "settings": {"retentionDays": -1}}`),
			wantErr: true,
			errMsg:  "retentionDays must be positive",
		},
		{
			name:    "invalid JSON",
			data:    []byte(`{invalid json}`),
			wantErr: true,
			errMsg:  "invalid character",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateJSON(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateJSON() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && tt.errMsg != "" {
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error message should contain %q, got %q", tt.errMsg, err.Error())
				}
			}
		})
	}
}

func TestSaveCreatesBackup(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "config.json")

	cfg := NewConfig()
	cfg.Users["ayse"] = &UserConfig{Role: RoleUser}

	// First save
	if err := Save(cfg, testPath); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	// Promote the user
	cfg.Users["ayse"].Role = RoleAdmin

	// Second save (should create backup)
	if err := Save(cfg, testPath); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	bakPath := testPath + ".bak"
	bakData, err := os.ReadFile(bakPath)
	if err != nil {
		t.Fatalf("failed to read backup: %v", err)
	}

	old, err := LoadFrom(bakPath)
	if err != nil {
		t.Fatalf("backup should be a loadable config: %v", err)
	}
	if got := old.RoleOf("ayse"); got != RoleUser {
		t.Errorf("backup should contain old role, got %q in %s", got, bakData)
	}
}

func TestSaveValidatesBeforeWrite(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "config.json")

	cfg := NewConfig()
	cfg.Users["mallory"] = &UserConfig{Role: "superuser"}

	err := Save(cfg, testPath)
	if err == nil {
		t.Fatal("Save should fail validation for unknown role")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("error should mention invalid config, got: %v", err)
	}

	// Verify nothing was written, not even the directory probe
	entries, _ := os.ReadDir(tmpDir)
	if len(entries) != 0 {
		t.Errorf("directory should be untouched after failed validation, found %d entries", len(entries))
	}
}

func TestAtomicWriteReplacesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "config.json")

	for _, content := range []string{"first", "second"} {
		if err := atomicWrite(testPath, []byte(content)); err != nil {
			t.Fatalf("atomicWrite failed: %v", err)
		}
	}
	data, err := os.ReadFile(testPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("expected second write to win, got %q", data)
	}
}
