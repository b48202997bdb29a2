package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/phobologic/jimbo/internal/model"
)

func init() {
	Languages["go"] = &Language{
		Name:       "go",
		Extensions: []string{".go"},
		lang:       golang.GetLanguage(),
		Definitions: map[string]model.SymbolKind{
			"function_declaration": model.Function,
		},
		Resolve:         goResolve,
		FindMethodClass: goFindReceiverType,
	}
}

// goResolve handles methods, whose kind depends on the receiver, and type
// specs, whose kind depends on the underlying type.
func goResolve(node *sitter.Node, source []byte) (string, model.SymbolKind, bool) {
	switch node.Type() {
	case "method_declaration":
		return FieldText(node, "name", source), model.Method, true
	case "type_spec":
		kind := model.Type
		if typ := node.ChildByFieldName("type"); typ != nil {
			switch typ.Type() {
			case "struct_type":
				kind = model.Class
			case "interface_type":
				kind = model.Interface
			}
		}
		return FieldText(node, "name", source), kind, true
	}
	return "", "", false
}

// goFindReceiverType extracts the receiver type name from a method_declaration
// node, unwrapping pointer receivers.
func goFindReceiverType(node *sitter.Node, source []byte) string {
	if node.Type() != "method_declaration" {
		return ""
	}
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		typ := param.ChildByFieldName("type")
		if typ == nil {
			return ""
		}
		if typ.Type() == "pointer_type" {
			for k := 0; k < int(typ.NamedChildCount()); k++ {
				if inner := typ.NamedChild(k); inner.Type() == "type_identifier" {
					return NodeText(inner, source)
				}
			}
			return ""
		}
		if typ.Type() == "type_identifier" {
			return NodeText(typ, source)
		}
	}
	return ""
}
