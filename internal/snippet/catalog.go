package snippet

// Construct labels. Several patterns may share a label.
const (
	ConstructFunction      = "a function"
	ConstructArrowFunction = "an arrow function"
	ConstructClass         = "a class"
	ConstructInterface     = "an interface"
	ConstructType          = "a type definition"
	ConstructImport        = "import statements"
	ConstructExport        = "export statements"
	ConstructConstant      = "a constant"
	ConstructVariable      = "a variable"
	ConstructConditional   = "conditional logic"
	ConstructLoop          = "a loop"
	ConstructErrorHandling = "error handling"
	ConstructAsync         = "async code"
	ConstructMarkup        = "JSX/HTML elements"
	ConstructReturn        = "a return statement"
)

// Action labels.
const (
	ActionAPI      = "makes API calls"
	ActionDOM      = "manipulates the DOM"
	ActionEvents   = "handles events"
	ActionData     = "processes data"
	ActionState    = "manages state"
	ActionFiles    = "handles files"
	ActionDatabase = "interacts with database"
	ActionValidate = "validates data"
	ActionLogging  = "logs information"
	ActionMath     = "performs calculations"
	ActionStrings  = "processes strings"
	ActionConfig   = "handles configuration"
)

// constructRules is evaluated in order; the first match wins.
var constructRules = []Rule{
	mustRule(ConstructFunction, `function\s+\w+\s*\(`),
	mustRule(ConstructArrowFunction, `const\s+\w+\s*=\s*\(`),
	mustRule(ConstructClass, `class\s+\w+`),
	mustRule(ConstructInterface, `interface\s+\w+`),
	mustRule(ConstructType, `type\s+\w+\s*=`),
	mustRule(ConstructImport, `import\s+`),
	mustRule(ConstructExport, `export\s+`),
	mustRule(ConstructConstant, `const\s+\w+\s*=`),
	mustRule(ConstructVariable, `let\s+\w+\s*=`),
	mustRule(ConstructVariable, `var\s+\w+\s*=`),
	mustRule(ConstructConditional, `if\s*\(`),
	mustRule(ConstructLoop, `for\s*\(`),
	mustRule(ConstructLoop, `while\s*\(`),
	mustRule(ConstructErrorHandling, `try\s*\{`),
	mustRule(ConstructErrorHandling, `catch\s*\(`),
	mustRule(ConstructAsync, `async\s+`),
	mustRule(ConstructAsync, `await\s+`),
	mustRule(ConstructMarkup, `<\w+`),
	mustRule(ConstructReturn, `return\s+`),
}

// actionRules are all evaluated; each contributes its label at most once.
var actionRules = []Rule{
	mustRule(ActionAPI, `fetch\(|axios\.|\.get\(|\.post\(`),
	mustRule(ActionDOM, `document\.|getElementById|querySelector|createElement`),
	mustRule(ActionEvents, `addEventListener|onClick|onChange|onSubmit`),
	mustRule(ActionData, `\.map\(|\.filter\(|\.reduce\(|\.forEach\(`),
	mustRule(ActionState, `useState|setState|state\.|dispatch`),
	mustRule(ActionFiles, `fs\.|readFile|writeFile|path\.`),
	mustRule(ActionDatabase, `\.save\(|\.find\(|\.create\(|\.delete\(|query|SELECT|INSERT`),
	mustRule(ActionValidate, `validate|check|verify|test`),
	mustRule(ActionLogging, `console\.|log\(|debug\(|error\(`),
	mustRule(ActionMath, `Math\.|calculate|compute|\+|-|\*|/|%`),
	mustRule(ActionStrings, `\.split\(|\.join\(|\.replace\(|\.substring\(|\.trim\(`),
	mustRule(ActionConfig, `config|settings|options|params`),
}

// Constructs returns the construct labels in priority order, without duplicates.
func Constructs() []string {
	return uniqueLabels(constructRules)
}

// Actions returns the built-in action labels in evaluation order.
func Actions() []string {
	return uniqueLabels(actionRules)
}

func uniqueLabels(rules []Rule) []string {
	seen := make(map[string]struct{}, len(rules))
	var labels []string
	for _, r := range rules {
		if _, ok := seen[r.Label]; ok {
			continue
		}
		seen[r.Label] = struct{}{}
		labels = append(labels, r.Label)
	}
	return labels
}
