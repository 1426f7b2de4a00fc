package parser

import "fmt"

// snippetAround returns a short window of src centered on pos, used to give
// ParseError messages a bit of context without requiring the caller to
// re-scan the source themselves.
func snippetAround(src string, pos int) string {
	start := pos - 10
	if start < 0 {
		start = 0
	}
	end := pos + 10
	if end > len(src) {
		end = len(src)
	}
	return src[start:end]
}

func (p *parser) errWithSnippet(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return &ParseError{Position: p.cur().pos, Message: fmt.Sprintf("%s (near %q)", msg, snippetAround(p.src, p.cur().pos))}
}
