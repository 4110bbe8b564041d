package format

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// LogPages is a console log split into Slack-sized pages.
type LogPages struct {
	Pages     []string // the tail of the log, oldest page first
	Total     int      // pages before truncation
	Truncated bool
}

// SanitizeLog strips terminal escape sequences and normalises line endings.
func SanitizeLog(text string) string {
	text = ansi.Strip(text)
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// PageLog splits text on line boundaries into pages of at most pageSize bytes.
// Lines longer than a page are split on rune boundaries. When maxPages > 0
// only the last maxPages pages are kept.
func PageLog(text string, pageSize, maxPages int) LogPages {
	text = strings.TrimRight(text, "\n")
	if text == "" || pageSize <= 0 {
		return LogPages{}
	}

	var pages []string
	var cur strings.Builder
	// started is separate from cur.Len() so a page can begin with a blank line.
	started := false
	flush := func() {
		if started {
			pages = append(pages, cur.String())
			cur.Reset()
			started = false
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if len(line) > pageSize {
			flush()
			pages = append(pages, splitLine(line, pageSize)...)
			continue
		}
		if started && cur.Len()+1+len(line) > pageSize {
			flush()
		}
		if started {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
		started = true
	}
	flush()

	res := LogPages{Pages: pages, Total: len(pages)}
	if maxPages > 0 && len(pages) > maxPages {
		res.Pages = pages[len(pages)-maxPages:]
		res.Truncated = true
	}
	return res
}

func splitLine(line string, size int) []string {
	var parts []string
	for len(line) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			cut = size
		}
		parts = append(parts, line[:cut])
		line = line[cut:]
	}
	if line != "" {
		parts = append(parts, line)
	}
	return parts
}
