// file: internal/backup/backup.go
// version: 2.0.0
// guid: 8f9e0a1b-2c3d-4e5f-6a7b-8c9d0e1f2a3b

package backup

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Info describes one snapshot of the canonical store.
type Info struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// Config holds snapshot settings.
type Config struct {
	BackupDir  string
	MaxBackups int
}

// DefaultConfig keeps the ten most recent snapshots under "backups".
func DefaultConfig() Config {
	return Config{
		BackupDir:  "backups",
		MaxBackups: 10,
	}
}

// Create writes a gzipped tar snapshot of the store file. Merges delete
// records, so callers take a snapshot before applying them.
func Create(databasePath string, cfg Config) (*Info, error) {
	if err := os.MkdirAll(cfg.BackupDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("memorial_%s.tar.gz", timestamp)
	backupPath := filepath.Join(cfg.BackupDir, filename)

	backupFile, err := os.Create(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}
	defer backupFile.Close()

	gzipWriter := gzip.NewWriter(backupFile)
	tarWriter := tar.NewWriter(gzipWriter)

	if err := addFile(tarWriter, databasePath); err != nil {
		tarWriter.Close()
		gzipWriter.Close()
		os.Remove(backupPath)
		return nil, fmt.Errorf("failed to archive store: %w", err)
	}

	if err := tarWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close tar writer: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	if err := backupFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close backup file: %w", err)
	}

	fileInfo, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup file: %w", err)
	}
	checksum, err := fileChecksum(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	if err := pruneOld(cfg.BackupDir, cfg.MaxBackups); err != nil {
		fmt.Printf("Warning: failed to clean up old backups: %v\n", err)
	}

	return &Info{
		Filename:  filename,
		Path:      backupPath,
		Size:      fileInfo.Size(),
		Checksum:  checksum,
		CreatedAt: time.Now(),
	}, nil
}

// Restore extracts a snapshot into targetDir.
func Restore(backupPath, targetDir string) error {
	backupFile, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer backupFile.Close()

	gzipReader, err := gzip.NewReader(backupFile)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		// Reject path traversal in archive entries.
		name := filepath.Clean(header.Name)
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("refusing archive entry %q", header.Name)
		}
		target := filepath.Join(targetDir, name)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
		}
		outFile, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("failed to create file %s: %w", target, err)
		}
		if _, err := io.Copy(outFile, tarReader); err != nil {
			outFile.Close()
			return fmt.Errorf("failed to write file %s: %w", target, err)
		}
		outFile.Close()
	}
	return nil
}

// List returns available snapshots, newest last.
func List(backupDir string) ([]Info, error) {
	var backups []Info

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return backups, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tar.gz") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backupPath := filepath.Join(backupDir, entry.Name())
		checksum, _ := fileChecksum(backupPath)
		backups = append(backups, Info{
			Filename:  entry.Name(),
			Path:      backupPath,
			Size:      info.Size(),
			Checksum:  checksum,
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.Before(backups[j].CreatedAt)
	})
	return backups, nil
}

func addFile(tarWriter *tar.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat store file: %w", err)
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(tarWriter, file)
	return err
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func pruneOld(backupDir string, maxBackups int) error {
	backups, err := List(backupDir)
	if err != nil {
		return err
	}
	if maxBackups <= 0 || len(backups) <= maxBackups {
		return nil
	}
	for _, old := range backups[:len(backups)-maxBackups] {
		if err := os.Remove(old.Path); err != nil {
			fmt.Printf("Warning: failed to delete old backup %s: %v\n", old.Filename, err)
		}
	}
	return nil
}
