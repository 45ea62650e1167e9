package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ANSI escape sequences used by Format.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// detailWidth is the column at which Format wraps the detail text.
const detailWidth = 72

var colorEnabled = true

// DisableColors turns off ANSI escapes in Format and PrintError.
func DisableColors() {
	colorEnabled = false
}

// EnableColors turns ANSI escapes back on.
func EnableColors() {
	colorEnabled = true
}

func paint(text string, codes ...string) string {
	if !colorEnabled || len(codes) == 0 {
		return text
	}
	return strings.Join(codes, "") + text + ansiReset
}

// Format renders the error for a terminal:
//
//	error[H002] registry: Store already exists
//	  --> store "cart"
//	   |
//	   | A store with this name is already registered ...
//	   |
//	   = hint: Pick a unique name ...
func (e *Error) Format() string {
	var b strings.Builder
	gutter := paint("   |", ansiGray)
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	line(e.heading())
	if e.Store != "" {
		line(paint("  --> ", ansiGray) + "store " + paint(strconv.Quote(e.Store), ansiCyan))
	}
	if e.Detail != "" {
		line(gutter)
		for _, l := range wrapText(e.Detail, detailWidth) {
			line(gutter + " " + l)
		}
	}
	if e.Wrapped != nil && !isSentinel(e.Wrapped) {
		line(gutter)
		line(gutter + " " + paint("cause: ", ansiGray) + e.Wrapped.Error())
	}
	if e.Suggestion != "" {
		line(gutter)
		line(paint("   = ", ansiGray) + paint("hint: ", ansiCyan) + e.Suggestion)
	}
	b.WriteByte('\n')
	return b.String()
}

// heading is the first line of Format: kind, code, category and message.
func (e *Error) heading() string {
	kind := paint("error", ansiBold, ansiRed)
	if e.IsWarning() {
		kind = paint("warning", ansiBold, ansiYellow)
	}
	if e.Code != "" {
		kind += paint("["+e.Code+"]", ansiBold)
	}
	if e.Category != "" {
		kind += " " + string(e.Category)
	}
	return kind + ": " + e.Message
}

// wrapText splits text into lines of at most width bytes, breaking on
// whitespace. A single word longer than width gets its own line.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := []string{words[0]}
	for _, w := range words[1:] {
		last := len(lines) - 1
		if len(lines[last])+1+len(w) > width {
			lines = append(lines, w)
			continue
		}
		lines[last] += " " + w
	}
	return lines
}

// PrintError writes err to w, using Format when err is or wraps an *Error.
func PrintError(w io.Writer, err error) {
	var e *Error
	if stderrors.As(err, &e) {
		fmt.Fprint(w, e.Format())
		return
	}
	fmt.Fprintf(w, "\n%s: %s\n\n", paint("error", ansiBold, ansiRed), err.Error())
}
