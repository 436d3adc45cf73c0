//go:build !windows

// Package filesystem provides the accessibility and free-space checks the
// File Importer (§4.12) and root-folder management rely on. Grounded on
// the teacher's internal/health/filesystem.go (CheckFolderAccessible /
// CheckFolderWritable), with free-space queried via syscall.Statfs rather
// than the teacher's `df`-shelling storage_service.go: matchday only needs
// a single path's free bytes, not a full drive/volume inventory, so the
// direct syscall is the simpler correct tool for the job.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
)

// Checker provides root-folder health checks.
type Checker struct{}

// NewChecker constructs a Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// CheckAccessible verifies that a path exists and is a directory.
func (c *Checker) CheckAccessible(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", path)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied: %s", path)
		}
		return fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	return nil
}

// CheckWritable verifies a directory is writable by creating and removing
// a throwaway file in it.
func (c *Checker) CheckWritable(path string) error {
	tempPath := filepath.Join(path, fmt.Sprintf(".matchday_health_check_%s", uuid.New().String()[:8]))

	f, err := os.Create(tempPath)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("folder is read-only: %s", path)
		}
		return fmt.Errorf("cannot write to folder: %w", err)
	}
	_ = f.Close()

	if err := os.Remove(tempPath); err != nil {
		return fmt.Errorf("cannot remove test file: %w", err)
	}
	return nil
}

// CheckHealth combines accessibility and writability checks, reporting a
// single ok/message pair suitable for persisting on a RootFolder row.
func (c *Checker) CheckHealth(path string) (bool, string) {
	if err := c.CheckAccessible(path); err != nil {
		return false, err.Error()
	}
	if err := c.CheckWritable(path); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// FreeBytes reports the free space available to an unprivileged user at
// path, via statfs (§4.12 step 3/4).
func FreeBytes(path string) (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

// SameDevice reports whether two paths live on the same filesystem, used
// to decide whether a hardlink is even worth attempting before the
// importer falls back to copy on EXDEV.
func SameDevice(a, b string) bool {
	infoA, errA := os.Stat(filepath.Dir(a))
	infoB, errB := os.Stat(filepath.Dir(b))
	if errA != nil || errB != nil {
		return false
	}
	sysA, okA := infoA.Sys().(*syscall.Stat_t)
	sysB, okB := infoB.Sys().(*syscall.Stat_t)
	if !okA || !okB {
		return false
	}
	return sysA.Dev == sysB.Dev
}
