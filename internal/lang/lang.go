// Package lang provides a language registry mapping file extensions to
// tree-sitter grammars and the node types that define symbols in them.
package lang

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/jimbo/internal/model"
)

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language

	// Definitions maps node types to the kind of symbol they define. The
	// symbol name is read from the node's "name" field.
	Definitions map[string]model.SymbolKind

	// Resolve handles definitions that Definitions cannot express, such as
	// `const f = () => {}`. It is consulted before Definitions.
	Resolve func(node *sitter.Node, source []byte) (name string, kind model.SymbolKind, ok bool)

	// FindMethodClass returns the enclosing class name if a function
	// definition is actually a method. Returns "" if not a method.
	FindMethodClass func(node *sitter.Node, source []byte) string
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Parsers are not safe for concurrent use.
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// ForPath returns the language name for a file path, or "" if unsupported.
func ForPath(path string) string {
	return ForExtension(filepath.Ext(path))
}

// Names returns the registered language names, sorted.
func Names() []string {
	names := make([]string, 0, len(Languages))
	for name := range Languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// FieldText returns the text of node's named field, or "" if absent.
func FieldText(node *sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return NodeText(child, source)
}

// enclosingName walks up from node to the nearest ancestor whose type is in
// containers and returns its name field. Walking stops at any type in stops.
func enclosingName(node *sitter.Node, source []byte, containers, stops map[string]struct{}) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		t := p.Type()
		if _, ok := containers[t]; ok {
			return FieldText(p, "name", source)
		}
		if _, ok := stops[t]; ok {
			return ""
		}
	}
	return ""
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}
