package asm

import (
	"bufio"
	"io"
	"strings"
)

// line is one tokenized, comment-stripped source line. Blank lines (after
// comment stripping) never appear on the channel tokenize returns.
type line struct {
	number int
	tokens []string
}

// tokenize reads r and streams one line per non-empty input line on a
// channel, keeping the lexing stage decoupled from the two assembly
// passes that consume it.
func tokenize(r io.Reader) <-chan line {
	out := make(chan line)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			var tokens []string
			for _, f := range strings.Fields(scanner.Text()) {
				if strings.HasPrefix(f, "#") {
					break
				}
				tokens = append(tokens, f)
			}
			if len(tokens) == 0 {
				continue
			}
			out <- line{number: lineNo, tokens: tokens}
		}
	}()
	return out
}

// isLabelDefinition reports whether tokens is a single-token label
// definition line, returning the label name with its trailing colon
// stripped.
func isLabelDefinition(tokens []string) (name string, ok bool) {
	if len(tokens) != 1 {
		return "", false
	}
	tok := tokens[0]
	if !strings.HasSuffix(tok, ":") || len(tok) < 2 {
		return "", false
	}
	name = strings.TrimSuffix(tok, ":")
	if !isAlpha(rune(name[0])) {
		return "", false
	}
	return name, true
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
