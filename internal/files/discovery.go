package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds prior-year coursegrade files in a directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindInputFiles lists the CSV and XLSX files in dir, sorted by name.
// Excel lock files (~$name.xlsx) and hidden files are skipped.
func (d *Discovery) FindInputFiles(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) && d.basePath != "" {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") || !supportedInput(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// FindPriorFiles lists the input files in dir as prior-year references
// labelled with their file name stem.
func (d *Discovery) FindPriorFiles(dir string) ([]PriorFile, error) {
	found, err := d.FindInputFiles(dir)
	if err != nil {
		return nil, err
	}

	out := make([]PriorFile, 0, len(found))
	for _, f := range found {
		out = append(out, PriorFile{
			Label: strings.TrimSuffix(f.Name, filepath.Ext(f.Name)),
			Path:  f.Path,
		})
	}
	return out, nil
}
