package outputproviders

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/aztopo/pkg/graph/adapters"
)

// Provider writes a graph snapshot somewhere.
type Provider interface {
	Write(snapshot adapters.Snapshot) error
}

// ForPath picks a provider from the file extension: .md writes Markdown
// tables, anything else writes JSON.
func ForPath(path string) Provider {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return &MarkdownFileProvider{OutputPath: path}
	default:
		return &JsonFileProvider{OutputPath: path}
	}
}

// createFile creates path, and its parent directory if needed.
func createFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}
