package snippet

import "regexp"

// openBraceEOL approximates nesting: braces that end a line open a block.
var openBraceEOL = regexp.MustCompile(`(?m)\{\s*$`)

// complexitySignals each add one point when present.
var complexitySignals = []Rule{
	mustRule("async", `async|await|Promise|\.then\(`),
	mustRule("error handling", `try\s*\{|catch\s*\(`),
	mustRule("inheritance", `class\s+\w+|extends\s+\w+`),
	mustRule("regex", `regex|RegExp|/.+/[gimuy]*`),
	mustRule("iteration", `for\s*\(|while\s*\(|\.map\(|\.filter\(|\.reduce\(`),
}

// tier returns 2 above high, 1 above low, 0 otherwise.
func tier(n, low, high int) int {
	switch {
	case n > high:
		return 2
	case n > low:
		return 1
	}
	return 0
}

// Score computes the additive complexity score of text given its non-blank
// line count.
func Score(text string, lines int) int {
	score := tier(lines, 10, 20)
	score += tier(len(openBraceEOL.FindAllStringIndex(text, -1)), 1, 3)
	score += len(allMatches(complexitySignals, text))
	return score
}

// Level maps a score to its Complexity.
func Level(score int) Complexity {
	switch {
	case score >= 4:
		return Complex
	case score >= 2:
		return Moderate
	}
	return Simple
}
