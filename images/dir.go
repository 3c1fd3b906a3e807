package images

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// supportedExtensions are the file extensions Decode understands.
var supportedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
	".gif": true, ".tif": true, ".tiff": true, ".webp": true,
}

// ListDirectory returns the image files directly inside dir, sorted by name.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []string: The image paths.
//   - error: Error if the directory cannot be read.
func ListDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(paths)
	return paths, nil
}
