package llm

import "strings"

// escapeRawNewlines replaces literal line breaks and tabs inside string
// values with their escaped forms. Line breaks outside strings are kept.
func escapeRawNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString && c == '\n':
			b.WriteString(`\n`)
			continue
		case inString && c == '\r':
			continue
		case inString && c == '\t':
			b.WriteString(`\t`)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// stripTrailingCommas drops commas that directly precede a closing bracket.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			b.WriteByte(c)
			continue
		}
		if c == '\\' && inString {
			escaped = true
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = !inString
		}
		if c == ',' && !inString {
			if next := nextNonSpace(s, i+1); next == '}' || next == ']' {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// closeTruncated balances a document that was cut off mid-stream. It cuts
// back to the last point where a value was complete (after a closing
// bracket, or before a separating comma) and appends the closers still open
// there. Balanced input is returned with anything after the root value
// removed.
func closeTruncated(s string) string {
	var stack []byte
	inString := false
	escaped := false

	safeAt := -1
	var safeStack []byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 {
				return s[:i]
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[:i+1]
			}
			safeAt = i + 1
			safeStack = append(safeStack[:0], stack...)
		case ',':
			safeAt = i
			safeStack = append(safeStack[:0], stack...)
		}
	}

	if len(stack) == 0 && !inString {
		return s
	}
	if !inString && safeAt == -1 {
		return strings.TrimRight(s, " \t\r\n,:") + closers(stack)
	}
	if safeAt == -1 {
		return s
	}
	return s[:safeAt] + closers(safeStack)
}

func closers(stack []byte) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

func nextNonSpace(s string, i int) byte {
	for ; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\n' && s[i] != '\r' && s[i] != '\t' {
			return s[i]
		}
	}
	return 0
}
