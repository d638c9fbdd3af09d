package decoding

import (
	"fmt"
	"strings"
)

// confidenceTrace mirrors the debug block of the original pipeline: every
// candidate with its confidence, then the selected one.
func confidenceTrace(candidates []Candidate, best Candidate) string {
	var b strings.Builder
	b.WriteString("--- Debug Info ---\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "Response %d:\n", i+1)
		fmt.Fprintf(&b, "Content: %s\n", c.Text)
		fmt.Fprintf(&b, "Confidence: %g\n\n", c.Confidence)
	}
	b.WriteString("Selected Response:\n")
	fmt.Fprintf(&b, "Content: %s\n", best.Text)
	fmt.Fprintf(&b, "Confidence: %g\n", best.Confidence)
	return b.String()
}

// arbitrationTrace wraps the arbitration prompt and the final text for debug
// output.
func arbitrationTrace(prompt, final string) string {
	var b strings.Builder
	b.WriteString("--- Arbitration Prompt ---\n")
	b.WriteString(prompt)
	b.WriteString("\n\nFinal Response:\n")
	b.WriteString(final)
	b.WriteString("\n")
	return b.String()
}
