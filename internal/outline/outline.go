// Package outline lists the symbols a snippet defines, using tree-sitter.
package outline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/jimbo/internal/lang"
	"github.com/phobologic/jimbo/internal/model"
)

// DefaultCacheSize is the number of outlines kept by NewCache when size <= 0.
const DefaultCacheSize = 256

// ErrUnsupported is returned for languages missing from the lang registry.
var ErrUnsupported = errors.New("unsupported language")

// Extract parses source and returns the symbols it defines, in document
// order. The parser must be created for l.
func Extract(ctx context.Context, l *lang.Language, parser *sitter.Parser, source []byte) (model.Outline, error) {
	out := model.Outline{Language: l.Name, Symbols: []model.Symbol{}}
	if len(source) == 0 {
		return out, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return out, fmt.Errorf("parsing %s snippet: %w", l.Name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	out.SyntaxErrors = root.HasError()
	walk(root, func(n *sitter.Node) {
		if sym, ok := definition(l, n, source); ok {
			out.Symbols = append(out.Symbols, sym)
		}
	})
	return out, nil
}

func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

func definition(l *lang.Language, n *sitter.Node, source []byte) (model.Symbol, bool) {
	var (
		name string
		kind model.SymbolKind
		ok   bool
	)
	if l.Resolve != nil {
		name, kind, ok = l.Resolve(n, source)
	}
	if !ok {
		kind, ok = l.Definitions[n.Type()]
		if ok {
			name = lang.FieldText(n, "name", source)
		}
	}
	if !ok || name == "" {
		return model.Symbol{}, false
	}

	if l.FindMethodClass != nil {
		if cls := l.FindMethodClass(n, source); cls != "" {
			kind = model.Method
			name = cls + "." + name
		}
	}
	return model.Symbol{
		Name: name,
		Kind: kind,
		Line: int(n.StartPoint().Row) + 1,
	}, true
}

// Cache memoizes outlines by language and content. It is safe for concurrent
// use; returned outlines share their Symbols slice and must not be modified.
type Cache struct {
	entries *lru.Cache[string, model.Outline]

	// tree-sitter parsers are not safe for concurrent use
	mu      sync.Mutex
	parsers map[string]*sitter.Parser
}

// NewCache creates a Cache holding up to size outlines.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, model.Outline](size)
	if err != nil {
		return nil, fmt.Errorf("creating outline cache: %w", err)
	}
	return &Cache{
		entries: entries,
		parsers: make(map[string]*sitter.Parser),
	}, nil
}

// Outline returns the outline of source in the named language.
func (c *Cache) Outline(ctx context.Context, language, source string) (model.Outline, error) {
	l, ok := lang.Languages[language]
	if !ok {
		return model.Outline{}, fmt.Errorf("%w %q", ErrUnsupported, language)
	}

	sum := sha256.Sum256([]byte(source))
	key := language + ":" + hex.EncodeToString(sum[:])
	if o, ok := c.entries.Get(key); ok {
		return o, nil
	}

	c.mu.Lock()
	p, ok := c.parsers[language]
	if !ok {
		p = l.NewParser()
		c.parsers[language] = p
	}
	o, err := Extract(ctx, l, p, []byte(source))
	c.mu.Unlock()
	if err != nil {
		return o, err
	}

	c.entries.Add(key, o)
	return o, nil
}

// Len returns the number of cached outlines.
func (c *Cache) Len() int {
	return c.entries.Len()
}
