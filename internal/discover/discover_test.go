package discover

import (
	"os"
	"path/filepath"
	"testing"
)

func paths(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestScanSourceFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.py", "print('hello')")
	writeFile(t, dir, "lib/util.ts", "export const x = 1")
	// Unsupported file should be ignored
	writeFile(t, dir, "readme.txt", "hello")
	// Hidden file should be ignored
	writeFile(t, dir, ".hidden.py", "secret")

	tree, err := Scan(NewFilter(dir, nil, nil))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(tree.Files) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(tree.Files), paths(tree.Files))
	}

	// Should be sorted
	if tree.Files[0].Path != filepath.Join("lib", "util.ts") {
		t.Errorf("entry 0: got %q", tree.Files[0].Path)
	}
	if tree.Files[0].Language != "typescript" {
		t.Errorf("entry 0 language = %q, want typescript", tree.Files[0].Language)
	}
	if tree.Files[1].Path != "main.py" {
		t.Errorf("entry 1: got %q", tree.Files[1].Path)
	}

	if len(tree.Dirs) != 2 || tree.Dirs[0] != "." || tree.Dirs[1] != "lib" {
		t.Errorf("Dirs = %v, want [. lib]", tree.Dirs)
	}
}

func TestScanSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.js", "1")
	writeFile(t, dir, "node_modules/pkg.js", "1")
	writeFile(t, dir, "__pycache__/cached.py", "pass")
	writeFile(t, dir, ".hidden/secret.py", "pass")

	tree, err := Scan(NewFilter(dir, nil, nil))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(tree.Files) != 1 {
		t.Fatalf("expected 1 entry, got %d: %v", len(tree.Files), paths(tree.Files))
	}
	if tree.Files[0].Path != "main.js" {
		t.Errorf("expected main.js, got %q", tree.Files[0].Path)
	}
	if len(tree.Dirs) != 1 {
		t.Errorf("Dirs = %v, want only root", tree.Dirs)
	}
}

func TestScanGitignoreAndPatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, ".gitignore", "generated/\n*.min.js\n")
	writeFile(t, dir, "app.js", "1")
	writeFile(t, dir, "app.min.js", "1")
	writeFile(t, dir, "generated/api.js", "1")
	writeFile(t, dir, "scratch/tmp.js", "1")

	tree, err := Scan(NewFilter(dir, nil, []string{"scratch/"}))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := paths(tree.Files)
	if len(got) != 1 || got[0] != "app.js" {
		t.Errorf("Files = %v, want [app.js]", got)
	}
}

func TestScanLanguageFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.py", "pass")
	writeFile(t, dir, "lib.py", "pass")
	writeFile(t, dir, "web.js", "1")

	tree, err := Scan(NewFilter(dir, []string{"python"}, nil))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(tree.Files) != 2 {
		t.Fatalf("expected 2 entries for python filter, got %d", len(tree.Files))
	}

	tree, err = Scan(NewFilter(dir, []string{"go"}, nil))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(tree.Files) != 0 {
		t.Fatalf("expected 0 entries for go filter, got %d", len(tree.Files))
	}
}

func TestScanSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.py", "pass")

	// Create symlink
	err := os.Symlink(filepath.Join(dir, "real.py"), filepath.Join(dir, "link.py"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	tree, err := Scan(NewFilter(dir, nil, nil))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(tree.Files) != 1 {
		t.Fatalf("expected 1 entry (no symlink), got %d", len(tree.Files))
	}
	if tree.Files[0].Path != "real.py" {
		t.Errorf("expected real.py, got %q", tree.Files[0].Path)
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	f := NewFilter(t.TempDir(), nil, []string{"*.gen.go"})
	cases := []struct {
		rel      string
		wantLang string
		wantOK   bool
	}{
		{"main.go", "go", true},
		{filepath.Join("src", "app.tsx"), "tsx", true},
		{filepath.Join("node_modules", "x", "index.js"), "", false},
		{filepath.Join(".cache", "a.py"), "", false},
		{"api.gen.go", "", false},
		{".eslintrc.js", "", false},
		{"notes.md", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.rel, func(t *testing.T) {
			t.Parallel()
			gotLang, gotOK := f.Match(tc.rel)
			if gotLang != tc.wantLang || gotOK != tc.wantOK {
				t.Errorf("Match(%q) = (%q, %v), want (%q, %v)", tc.rel, gotLang, gotOK, tc.wantLang, tc.wantOK)
			}
		})
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
