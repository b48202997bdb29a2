package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/phobologic/jimbo/internal/model"
)

func init() {
	Languages["python"] = &Language{
		Name:       "python",
		Extensions: []string{".py", ".pyi"},
		lang:       python.GetLanguage(),
		Definitions: map[string]model.SymbolKind{
			"function_definition": model.Function,
			"class_definition":    model.Class,
		},
		FindMethodClass: pythonFindMethodClass,
	}
}

func pythonFindMethodClass(funcNode *sitter.Node, source []byte) string {
	if funcNode.Type() != "function_definition" {
		return ""
	}
	classNode := pythonFindEnclosingClass(funcNode)
	if classNode == nil {
		return ""
	}
	for i := 0; i < int(classNode.ChildCount()); i++ {
		child := classNode.Child(i)
		if child.Type() == "identifier" {
			return NodeText(child, source)
		}
	}
	return ""
}

func pythonFindEnclosingClass(funcNode *sitter.Node) *sitter.Node {
	parent := funcNode.Parent()
	if parent == nil {
		return nil
	}

	// Direct: func -> block -> class_definition
	if parent.Type() == "block" && parent.Parent() != nil && parent.Parent().Type() == "class_definition" {
		return parent.Parent()
	}

	// Decorated: func -> decorated_definition -> block -> class_definition
	if parent.Type() == "decorated_definition" {
		gp := parent.Parent()
		if gp != nil && gp.Type() == "block" && gp.Parent() != nil && gp.Parent().Type() == "class_definition" {
			return gp.Parent()
		}
	}

	return nil
}
