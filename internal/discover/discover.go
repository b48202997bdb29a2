// Package discover decides which files under a root are worth watching.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/jimbo/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to root
	Language string
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	"out":           {},
	"vendor":        {},
	"target":        {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
}

// Filter matches repo-relative paths against skip rules, ignore files and an
// optional language allow-list.
type Filter struct {
	root    string
	langSet map[string]struct{}
	ignores []*ignore.GitIgnore
}

// NewFilter builds a Filter for root. If languages is non-empty only files in
// those languages match. patterns are extra gitignore-style lines applied on
// top of root/.gitignore.
func NewFilter(root string, languages, patterns []string) *Filter {
	f := &Filter{
		root:    root,
		langSet: make(map[string]struct{}, len(languages)),
	}
	for _, l := range languages {
		f.langSet[l] = struct{}{}
	}
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		f.ignores = append(f.ignores, gi)
	}
	if len(patterns) > 0 {
		f.ignores = append(f.ignores, ignore.CompileIgnoreLines(patterns...))
	}
	return f
}

// Root returns the directory the filter was built for.
func (f *Filter) Root() string {
	return f.root
}

func (f *Filter) ignored(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	for _, gi := range f.ignores {
		if gi.MatchesPath(rel) || (isDir && gi.MatchesPath(rel+"/")) {
			return true
		}
	}
	return false
}

// SkipDir reports whether the directory at rel should not be walked or watched.
func (f *Filter) SkipDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	name := filepath.Base(rel)
	if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
		return true
	}
	return f.ignored(rel, true)
}

// Match returns the language of the file at rel and whether it should be
// watched.
func (f *Filter) Match(rel string) (string, bool) {
	name := filepath.Base(rel)
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	for dir := filepath.Dir(rel); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if f.SkipDir(dir) {
			return "", false
		}
	}
	langName := lang.ForPath(name)
	if langName == "" {
		return "", false
	}
	if len(f.langSet) > 0 {
		if _, ok := f.langSet[langName]; !ok {
			return "", false
		}
	}
	if f.ignored(rel, false) {
		return "", false
	}
	return langName, true
}

// Tree is the result of Scan.
type Tree struct {
	Dirs  []string    // Relative to root, "." first
	Files []FileEntry // Sorted by path
}

// Scan walks the filter's root and returns the directories to watch and the
// files to snapshot. Unreadable entries and symlinks are skipped.
func Scan(f *Filter) (Tree, error) {
	var tree Tree

	err := filepath.WalkDir(f.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if f.SkipDir(rel) {
				return filepath.SkipDir
			}
			tree.Dirs = append(tree.Dirs, rel)
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if langName, ok := f.Match(rel); ok {
			tree.Files = append(tree.Files, FileEntry{Path: rel, Language: langName})
		}
		return nil
	})
	if err != nil {
		return Tree{}, err
	}

	sort.Slice(tree.Files, func(i, j int) bool {
		return tree.Files[i].Path < tree.Files[j].Path
	})
	return tree, nil
}
