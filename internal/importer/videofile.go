package importer

import (
	"os"
	"path/filepath"
	"strings"
)

// videoExtensions are the extensions considered importable media, grounded
// on the teacher's library/scanner/extensions.go VideoExtensions set.
var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".m4v": true,
	".ts": true, ".wmv": true, ".mov": true, ".webm": true,
	".flv": true, ".mpg": true, ".mpeg": true, ".m2ts": true,
	".vob": true, ".iso": true,
}

// sampleIndicators flags filenames that are previews, not the real release.
var sampleIndicators = []string{"sample", "trailer", "proof"}

func isVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

func isSampleFile(name string) bool {
	lower := strings.ToLower(name)
	for _, indicator := range sampleIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// largestVideoFile walks downloadPath (a file or a directory) and returns
// the path and size of the largest non-sample video file found (§4.12
// step 2). If downloadPath itself is a video file, it is returned directly.
func largestVideoFile(downloadPath string) (string, int64, error) {
	info, err := os.Stat(downloadPath)
	if err != nil {
		return "", 0, err
	}
	if !info.IsDir() {
		return downloadPath, info.Size(), nil
	}

	var bestPath string
	var bestSize int64

	err = filepath.WalkDir(downloadPath, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // skip unreadable entries, keep scanning
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !isVideoFile(name) || isSampleFile(name) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		if fi.Size() > bestSize {
			bestSize = fi.Size()
			bestPath = path
		}
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	if bestPath == "" {
		return "", 0, ErrNoVideoFile
	}
	return bestPath, bestSize, nil
}
