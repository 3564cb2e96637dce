// Package walker inventories the assets of a static site directory.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxFileSize is the largest asset reported (16 MiB).
const DefaultMaxFileSize int64 = 16 << 20

// Asset describes one file found in the site.
type Asset struct {
	Path    string // Absolute path on disk.
	RelPath string // Slash-separated path relative to the site root.
	Size    int64
	Kind    Kind
}

// Config controls Walk.
type Config struct {
	RootDir     string
	Include     []string // Only matching files are reported.
	Exclude     []string // Matching files are skipped.
	Kinds       []Kind   // Only these kinds are reported. Empty means all.
	MaxFileSize int64    // Larger files are skipped (0 = default).
}

// Walk traverses the site rooted at cfg.RootDir and returns every asset
// passing the filters, sorted by relative path. It honours a root
// .gitignore.
func Walk(cfg Config) ([]Asset, error) {
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}
	if fi, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("walker: %w", err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("walker: %s is not a directory", root)
	}

	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	gitignore := loadGitignore(filepath.Join(root, ".gitignore"))

	var assets []Asset
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip entries we cannot read instead of aborting.
			return nil
		}
		if d.IsDir() {
			if path != root && shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if matchesGitignore(relPath, gitignore) {
			return nil
		}
		if !MatchesInclude(relPath, cfg.Include) || MatchesExclude(relPath, cfg.Exclude) {
			return nil
		}
		kind := DetectKind(d.Name())
		if len(cfg.Kinds) > 0 && !hasKind(cfg.Kinds, kind) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxSize {
			return nil
		}

		assets = append(assets, Asset{
			Path:    path,
			RelPath: relPath,
			Size:    info.Size(),
			Kind:    kind,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walker: traversal: %w", err)
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].RelPath < assets[j].RelPath })
	return assets, nil
}

// Summary counts assets per kind.
func Summary(assets []Asset) map[Kind]int {
	out := make(map[Kind]int)
	for _, a := range assets {
		out[a.Kind]++
	}
	return out
}

func hasKind(kinds []Kind, k Kind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

// loadGitignore reads a .gitignore file and returns its non-empty,
// non-comment lines as patterns.
func loadGitignore(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// matchesGitignore checks if a relative path matches any gitignore pattern.
func matchesGitignore(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		dirOnly := strings.HasSuffix(pattern, "/")
		pattern = strings.TrimSuffix(pattern, "/")

		if strings.Contains(pattern, "/") {
			if matched, _ := filepath.Match(strings.TrimPrefix(pattern, "/"), relPath); matched {
				return true
			}
			continue
		}

		// A slashless pattern matches any path component. Directory-only
		// patterns must not match the file name itself.
		parts := strings.Split(relPath, "/")
		if dirOnly {
			parts = parts[:len(parts)-1]
		}
		for _, part := range parts {
			if matched, _ := filepath.Match(pattern, part); matched {
				return true
			}
		}
	}
	return false
}
