package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/phobologic/jimbo/internal/model"
)

func init() {
	jsDefs := map[string]model.SymbolKind{
		"function_declaration":           model.Function,
		"generator_function_declaration": model.Function,
		"class_declaration":              model.Class,
		"method_definition":              model.Method,
	}
	tsDefs := map[string]model.SymbolKind{
		"abstract_class_declaration": model.Class,
		"interface_declaration":      model.Interface,
		"type_alias_declaration":     model.Type,
		"enum_declaration":           model.Type,
		"module":                     model.Module,
	}
	for k, v := range jsDefs {
		tsDefs[k] = v
	}

	Languages["javascript"] = &Language{
		Name:            "javascript",
		Extensions:      []string{".js", ".jsx", ".mjs", ".cjs"},
		lang:            javascript.GetLanguage(),
		Definitions:     jsDefs,
		Resolve:         jsResolveFunctionValue,
		FindMethodClass: jsFindMethodClass,
	}
	Languages["typescript"] = &Language{
		Name:            "typescript",
		Extensions:      []string{".ts", ".mts", ".cts"},
		lang:            typescript.GetLanguage(),
		Definitions:     tsDefs,
		Resolve:         jsResolveFunctionValue,
		FindMethodClass: jsFindMethodClass,
	}
	Languages["tsx"] = &Language{
		Name:            "tsx",
		Extensions:      []string{".tsx"},
		lang:            tsx.GetLanguage(),
		Definitions:     tsDefs,
		Resolve:         jsResolveFunctionValue,
		FindMethodClass: jsFindMethodClass,
	}
}

// functionValues are expression node types that make a declarator a function.
// Grammar versions disagree on "function" vs "function_expression".
var functionValues = set("arrow_function", "function", "function_expression", "generator_function")

// jsResolveFunctionValue names `const f = () => {}` and `let g = function() {}`.
func jsResolveFunctionValue(node *sitter.Node, source []byte) (string, model.SymbolKind, bool) {
	if node.Type() != "variable_declarator" {
		return "", "", false
	}
	value := node.ChildByFieldName("value")
	if value == nil {
		return "", "", false
	}
	if _, ok := functionValues[value.Type()]; !ok {
		return "", "", false
	}
	return FieldText(node, "name", source), model.Function, true
}

var (
	jsClassTypes = set("class_declaration", "abstract_class_declaration", "class")
	jsScopeStops = set("function_declaration", "arrow_function", "function", "function_expression")
)

// jsFindMethodClass returns the class owning a method_definition.
func jsFindMethodClass(node *sitter.Node, source []byte) string {
	if node.Type() != "method_definition" {
		return ""
	}
	return enclosingName(node, source, jsClassTypes, jsScopeStops)
}
