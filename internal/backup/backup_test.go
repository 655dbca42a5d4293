// file: internal/backup/backup_test.go
// version: 2.0.0
// guid: c3d4e5f6-a7b8-9c0d-1e2f-3a4b5c6d7e8f

package backup

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStoreFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "memorial.db")
	if err := os.WriteFile(path, []byte("canonical records"), 0o644); err != nil {
		t.Fatalf("failed to write store file: %v", err)
	}
	return path
}

func TestCreateAndRestore(t *testing.T) {
	tempDir := t.TempDir()
	storePath := writeStoreFile(t, tempDir)
	cfg := Config{BackupDir: filepath.Join(tempDir, "backups"), MaxBackups: 10}

	info, err := Create(storePath, cfg)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if info.Size == 0 {
		t.Error("expected non-empty snapshot")
	}
	if len(info.Checksum) != 64 {
		t.Errorf("expected sha256 hex checksum, got %q", info.Checksum)
	}

	restoreDir := filepath.Join(tempDir, "restore")
	if err := Restore(info.Path, restoreDir); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(restoreDir, "memorial.db"))
	if err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if string(data) != "canonical records" {
		t.Errorf("restored content mismatch: %q", data)
	}
}

func TestCreateMissingStore(t *testing.T) {
	tempDir := t.TempDir()
	cfg := Config{BackupDir: filepath.Join(tempDir, "backups"), MaxBackups: 10}

	if _, err := Create(filepath.Join(tempDir, "nope.db"), cfg); err == nil {
		t.Fatal("expected error for missing store file")
	}
}

func TestListEmptyDirectory(t *testing.T) {
	backups, err := List(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %d", len(backups))
	}
}

func TestPruneKeepsMostRecent(t *testing.T) {
	tempDir := t.TempDir()
	storePath := writeStoreFile(t, tempDir)
	backupDir := filepath.Join(tempDir, "backups")

	// Distinct filenames need distinct timestamps, so fake the files.
	for _, name := range []string{
		"memorial_20240101_000000.tar.gz",
		"memorial_20240102_000000.tar.gz",
		"memorial_20240103_000000.tar.gz",
	} {
		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(backupDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := Config{BackupDir: backupDir, MaxBackups: 2}
	if _, err := Create(storePath, cfg); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	backups, err := List(backupDir)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 2 {
		t.Errorf("expected 2 backups after prune, got %d", len(backups))
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BackupDir != "backups" {
		t.Errorf("unexpected backup dir %q", cfg.BackupDir)
	}
	if cfg.MaxBackups != 10 {
		t.Errorf("unexpected retention %d", cfg.MaxBackups)
	}
}
