package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CopyFileWithTimestamp archives a file into destDir under a
// timestamp-suffixed name and returns the destination path.
func CopyFileWithTimestamp(sourcePath, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	source, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer source.Close()

	name := filepath.Base(sourcePath)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	destPath := filepath.Join(destDir, fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext))

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, source); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	return destPath, nil
}
