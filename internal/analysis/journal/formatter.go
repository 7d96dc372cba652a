package journal

import (
	"strings"
	"time"
)

// DateLayout renders dates like "October 18, 2026".
const DateLayout = "January 02, 2006"

// Format renders a transcript as a markdown journal without calling a model.
// Every transcript line, including lines produced by embedded newlines,
// becomes one list item. The output depends only on its arguments.
func Format(transcript string, date time.Time) string {
	var b strings.Builder
	b.WriteString("## Journal Entry - ")
	b.WriteString(date.Format(DateLayout))
	b.WriteString("\n\n")

	if transcript == "" {
		return b.String()
	}

	lines := strings.Split(strings.ReplaceAll(transcript, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(line)
	}
	return b.String()
}
