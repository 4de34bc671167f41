package loader

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
)

// DirectoryLoader reads every supported plain-text file under a directory
// into a Document. Binary formats (PDF, DOCX) are out of scope; extend
// Extensions only with formats readable as UTF-8 text.
type DirectoryLoader struct {
	Dir        string
	Extensions []string // e.g. [".txt", ".md"]
}

// New creates a loader for dir accepting the given file extensions.
func New(dir string, extensions []string) *DirectoryLoader {
	if len(extensions) == 0 {
		extensions = []string{".txt", ".md"}
	}
	return &DirectoryLoader{Dir: dir, Extensions: extensions}
}

// Load walks the directory and returns one Document per matching file.
// Each document's metadata carries "source" (base name) and "path"
// (directory-relative path). Unreadable files abort the load.
func (l *DirectoryLoader) Load() ([]domain.Document, error) {
	info, err := os.Stat(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("documents directory %s: not a directory", l.Dir)
	}

	pattern := l.pattern()
	var docs []domain.Document

	err = filepath.WalkDir(l.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.Dir, path)
		if err != nil {
			return err
		}
		matched, err := doublestar.Match(pattern, filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("match %s: %w", pattern, err)
		}
		if !matched {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			slog.Warn("skipping empty document", "path", rel)
			return nil
		}

		docs = append(docs, domain.Document{
			Content: content,
			Metadata: map[string]any{
				"source": filepath.Base(path),
				"path":   filepath.ToSlash(rel),
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.Dir, err)
	}

	return docs, nil
}

// pattern builds a doublestar glob matching any supported extension at any
// depth, e.g. "**/*{.txt,.md}".
func (l *DirectoryLoader) pattern() string {
	exts := make([]string, len(l.Extensions))
	for i, e := range l.Extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[i] = e
	}
	return "**/*{" + strings.Join(exts, ",") + "}"
}
