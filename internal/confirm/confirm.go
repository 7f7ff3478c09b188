// Package confirm implements the interactive "are you sure?" prompt
// required before any destructive action (delete-rows, update-rows).
package confirm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Ask prints prompt to out and reads lines from in until the user types
// (case-insensitively, trimmed) "y" or "n". It returns true for "y",
// false for "n" or if the input stream is exhausted before an answer is
// given (exhaustion is treated as a decline).
func Ask(in io.Reader, out io.Writer, prompt string) bool {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s (y/n) ", prompt)
		if !scanner.Scan() {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y":
			return true
		case "n":
			return false
		}
	}
}
