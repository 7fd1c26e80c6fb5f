// Package terminal provides utilities for terminal operations such as clearing
// a prompt once it has been answered.
package terminal

import (
	"math"

	"atomicgo.dev/cursor"
	"golang.org/x/term"
)

// DefaultWidth is assumed when the width of the terminal cannot be read.
const DefaultWidth = 80

// Lines returns how many rows textLength characters occupy on a terminal of
// the given width, plus the row the cursor moved to after Enter.
func Lines(textLength, width int) int {
	if width <= 0 {
		width = DefaultWidth
	}
	total := int(math.Ceil(float64(textLength) / float64(width)))
	if total < 1 {
		total = 1
	}
	return total + 1
}

// ClearPreviousLines erases a prompt and its answer from w.
//
// textLength is the number of characters printed (prompt plus input). The
// cursor is expected on the empty line below the input.
func ClearPreviousLines(w cursor.Writer, textLength int) {
	width := DefaultWidth
	if cols, _, err := term.GetSize(int(w.Fd())); err == nil && cols > 0 {
		width = cols
	}
	c := cursor.NewCursor().WithWriter(w)
	n := Lines(textLength, width)
	for i := 0; i < n; i++ {
		c.HorizontalAbsolute(0)
		c.ClearLine()
		if i < n-1 {
			c.Up(1)
		}
	}
}
