package snippet

import "strings"

// Gist renders a construct label and action labels as one sentence, e.g.
// "Added a function that makes API calls, logs information, and performs
// calculations".
func Gist(construct string, actions []string) string {
	if construct == "" {
		construct = "code"
	}
	var b strings.Builder
	b.WriteString("Added ")
	b.WriteString(construct)

	switch n := len(actions); n {
	case 0:
	case 1:
		b.WriteString(" that " + actions[0])
	case 2:
		b.WriteString(" that " + actions[0] + " and " + actions[1])
	default:
		b.WriteString(" that " + strings.Join(actions[:n-1], ", ") + ", and " + actions[n-1])
	}
	return b.String()
}
