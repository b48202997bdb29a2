// Package snippet classifies freshly inserted source text by superficial
// pattern matching: which construct it declares, which actions it appears to
// perform, and how complex it looks.
package snippet

import (
	"fmt"
	"regexp"
	"strings"
)

// Complexity is an ordinal rating derived from the additive complexity score.
type Complexity string

const (
	Simple   Complexity = "simple"
	Moderate Complexity = "moderate"
	Complex  Complexity = "complex"
)

// Result is the classification of a single snippet.
type Result struct {
	LineCount     int        `json:"lineCount" yaml:"line_count"`
	ConstructType string     `json:"constructType" yaml:"construct_type"`
	Actions       []string   `json:"actions" yaml:"actions"`
	Complexity    Complexity `json:"complexity" yaml:"complexity"`
	Score         int        `json:"score" yaml:"score"`
	Gist          string     `json:"gist" yaml:"gist"`
}

// Rule pairs a label with the case-insensitive pattern that triggers it.
type Rule struct {
	Label   string
	Pattern *regexp.Regexp
}

// CompileRule builds a case-insensitive Rule from a regular expression.
func CompileRule(label, expr string) (Rule, error) {
	if strings.TrimSpace(label) == "" {
		return Rule{}, fmt.Errorf("rule %q: empty label", expr)
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", label, err)
	}
	return Rule{Label: label, Pattern: re}, nil
}

func mustRule(label, expr string) Rule {
	r, err := CompileRule(label, expr)
	if err != nil {
		panic(err)
	}
	return r
}

// firstMatch returns the label of the first rule matching text, or "".
func firstMatch(rules []Rule, text string) string {
	for _, r := range rules {
		if r.Pattern.MatchString(text) {
			return r.Label
		}
	}
	return ""
}

// allMatches returns the labels of every rule matching text, in rule order.
func allMatches(rules []Rule, text string) []string {
	labels := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.Pattern.MatchString(text) {
			labels = append(labels, r.Label)
		}
	}
	return labels
}

// CountLines returns the number of lines containing a non-whitespace character.
func CountLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// Classifier evaluates the construct and action catalogs. The zero value is
// not usable; use New or the package-level Classify.
type Classifier struct {
	constructs []Rule
	actions    []Rule
}

// New returns a Classifier using the built-in catalogs, with extraActions
// evaluated after the built-in action rules.
func New(extraActions ...Rule) *Classifier {
	actions := make([]Rule, 0, len(actionRules)+len(extraActions))
	actions = append(actions, actionRules...)
	actions = append(actions, extraActions...)
	return &Classifier{
		constructs: constructRules,
		actions:    actions,
	}
}

var std = New()

// Classify classifies text with the built-in catalogs.
func Classify(text string) Result {
	return std.Classify(text)
}

// Classify produces the full Result for text.
func (c *Classifier) Classify(text string) Result {
	lines := CountLines(text)
	construct := firstMatch(c.constructs, text)
	actions := allMatches(c.actions, text)
	score := Score(text, lines)
	return Result{
		LineCount:     lines,
		ConstructType: construct,
		Actions:       actions,
		Complexity:    Level(score),
		Score:         score,
		Gist:          Gist(construct, actions),
	}
}

// Generic is the result for a snippet nothing could be said about.
func Generic() Result {
	return Result{
		Actions:    []string{},
		Complexity: Simple,
		Gist:       Gist("", nil),
	}
}

// Safe classifies text with c, returning Generic if classification panics.
// A nil Classifier uses the built-in catalogs.
func Safe(c *Classifier, text string) (res Result, err error) {
	if c == nil {
		c = std
	}
	defer func() {
		if r := recover(); r != nil {
			res = Generic()
			err = fmt.Errorf("classifying snippet: %v", r)
		}
	}()
	return c.Classify(text), nil
}
