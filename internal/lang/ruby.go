package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/phobologic/jimbo/internal/model"
)

func init() {
	Languages["ruby"] = &Language{
		Name:       "ruby",
		Extensions: []string{".rb"},
		lang:       ruby.GetLanguage(),
		Definitions: map[string]model.SymbolKind{
			"method":           model.Function,
			"singleton_method": model.Function,
		},
		Resolve:         rubyResolve,
		FindMethodClass: rubyFindMethodClass,
	}
}

// rubyResolve names classes and modules, whose names may be scope
// resolutions (Foo::Bar) rather than a plain name field.
func rubyResolve(node *sitter.Node, source []byte) (string, model.SymbolKind, bool) {
	switch node.Type() {
	case "class":
		return rubyClassName(node, source), model.Class, true
	case "module":
		return rubyClassName(node, source), model.Module, true
	}
	return "", "", false
}

// rubyFindMethodClass walks the parent chain looking for a class or module node.
func rubyFindMethodClass(funcNode *sitter.Node, source []byte) string {
	t := funcNode.Type()
	if t != "method" && t != "singleton_method" {
		return ""
	}
	for node := funcNode.Parent(); node != nil; node = node.Parent() {
		switch node.Type() {
		case "class", "module":
			return rubyClassName(node, source)
		case "method", "singleton_method":
			return ""
		}
	}
	return ""
}

// rubyClassName extracts the name from a class or module node.
func rubyClassName(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "constant" || child.Type() == "scope_resolution" {
			return NodeText(child, source)
		}
	}
	return ""
}
