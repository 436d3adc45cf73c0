package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Errors surfaced by the transfer helpers, grounded on the teacher's
// organizer/fileops.go hardlink/symlink/copy chain.
var (
	ErrHardlinkFailed = errors.New("failed to create hardlink")
	ErrCrossDevice     = errors.New("cross-device link not supported")
)

// LinkMode names how a file was transferred into the library, persisted
// on ImportHistory.LinkMode.
type LinkMode string

const (
	LinkModeHardlink LinkMode = "hardlink"
	LinkModeCopy     LinkMode = "copy"
	LinkModeMove     LinkMode = "move"
)

// transfer moves sourcePath to destPath according to the configured link
// mode, falling back to copy on cross-device hardlink failure (§4.12
// step 7). The source is left intact for hardlink and copy so the
// download client can keep seeding; move removes it.
func transfer(sourcePath, destPath string, mode LinkMode) (LinkMode, error) {
	if err := ensureDestDir(destPath); err != nil {
		return "", err
	}

	switch mode {
	case LinkModeHardlink:
		if err := createHardlink(sourcePath, destPath); err == nil {
			return LinkModeHardlink, nil
		} else if !errors.Is(err, ErrCrossDevice) {
			return "", err
		}
		// Cross-device: fall through to copy.
		if err := copyFile(sourcePath, destPath); err != nil {
			return "", err
		}
		return LinkModeCopy, nil

	case LinkModeMove:
		if err := os.Rename(sourcePath, destPath); err == nil {
			return LinkModeMove, nil
		}
		if err := copyFile(sourcePath, destPath); err != nil {
			return "", err
		}
		if err := os.Remove(sourcePath); err != nil {
			return LinkModeCopy, fmt.Errorf("copied but failed to remove source: %w", err)
		}
		return LinkModeMove, nil

	default: // LinkModeCopy and anything unrecognized
		if err := copyFile(sourcePath, destPath); err != nil {
			return "", err
		}
		return LinkModeCopy, nil
	}
}

func createHardlink(source, dest string) error {
	if err := removeIfExists(dest); err != nil {
		return err
	}
	if err := os.Link(source, dest); err != nil {
		if isCrossDeviceError(err) {
			return fmt.Errorf("%w: %w", ErrCrossDevice, err)
		}
		return fmt.Errorf("%w: %w", ErrHardlinkFailed, err)
	}
	return nil
}

func copyFile(sourcePath, destPath string) error {
	if err := ensureDestDir(destPath); err != nil {
		return err
	}
	if err := removeIfExists(destPath); err != nil {
		return err
	}

	source, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer source.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, source); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("copy file: %w", err)
	}

	if info, err := os.Stat(sourcePath); err == nil {
		_ = os.Chmod(destPath, info.Mode())
	}
	return nil
}

func ensureDestDir(destPath string) error {
	destDir := filepath.Dir(destPath)
	if info, err := os.Stat(destDir); err == nil && info.IsDir() {
		return nil
	}

	perm := os.FileMode(0o755)
	if parentInfo, err := os.Stat(filepath.Dir(destDir)); err == nil {
		perm = parentInfo.Mode().Perm()
	}
	if err := os.MkdirAll(destDir, perm); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	return nil
}

func removeIfExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove existing file: %w", err)
		}
	}
	return nil
}

// uniqueDestPath appends " (1)", " (2)", … until destPath does not already
// exist (§4.12 step 6).
func uniqueDestPath(destPath string) string {
	if _, err := os.Stat(destPath); err != nil {
		return destPath
	}
	ext := filepath.Ext(destPath)
	base := strings.TrimSuffix(destPath, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

// cleanEmptyParent removes sourceDir if it is now empty, used after the
// source file has been moved/hardlinked out of a downloads directory.
func cleanEmptyParent(sourceDir string) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil || len(entries) > 0 {
		return
	}
	_ = os.Remove(sourceDir)
}

func isCrossDeviceError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	switch runtime.GOOS {
	case "linux", "darwin":
		return strings.Contains(errStr, "cross-device") || strings.Contains(errStr, "invalid cross-device link")
	case "windows":
		return strings.Contains(errStr, "not on the same disk")
	default:
		return strings.Contains(errStr, "cross-device")
	}
}
