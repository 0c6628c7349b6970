package mapnikxml

import (
	"fmt"
	"regexp"
	"strings"
)

type severity int

const (
	severityError severity = iota
	severityWarning
)

type diagnostic struct {
	severity severity
	line     int
	message  string
}

var propertyRe = regexp.MustCompile(`^@?[A-Za-z_][A-Za-z0-9_-]*$`)

// check runs the lightweight structural checks on one stylesheet. Unbalanced
// blocks and unterminated strings or comments are errors; statements that do
// not have the "name: value" shape are warnings.
func check(style string) []diagnostic {
	var (
		out       []diagnostic
		opened    []int
		stmt      strings.Builder
		stmtLine  = 0
		line      = 1
		n         = len(style)
		startStmt = func(l int) {
			if stmt.Len() == 0 {
				stmtLine = l
			}
		}
	)

	flush := func(terminated bool) {
		text := strings.TrimSpace(stmt.String())
		stmt.Reset()
		if text == "" {
			return
		}
		if !terminated && len(opened) == 0 {
			out = append(out, diagnostic{severityWarning, stmtLine, fmt.Sprintf("unterminated statement %q on line %d", text, stmtLine)})
			return
		}
		name, _, ok := strings.Cut(text, ":")
		if !ok || !propertyRe.MatchString(strings.TrimSpace(name)) {
			out = append(out, diagnostic{severityWarning, stmtLine, fmt.Sprintf("malformed declaration %q on line %d", text, stmtLine)})
			return
		}
		if len(opened) == 0 && !strings.HasPrefix(name, "@") {
			out = append(out, diagnostic{severityWarning, stmtLine, fmt.Sprintf("declaration %q outside of a block on line %d", text, stmtLine)})
		}
	}

	for i := 0; i < n; i++ {
		c := style[i]
		switch {
		case c == '\n':
			line++
			if stmt.Len() > 0 {
				stmt.WriteByte(c)
			}
		case c == '/' && i+1 < n && style[i+1] == '/':
			for i < n && style[i] != '\n' {
				i++
			}
			i--
		case c == '/' && i+1 < n && style[i+1] == '*':
			start := line
			end := strings.Index(style[i+2:], "*/")
			if end < 0 {
				out = append(out, diagnostic{severityError, start, fmt.Sprintf("unterminated comment on line %d", start)})
				return out
			}
			line += strings.Count(style[i:i+2+end], "\n")
			i += end + 3
		case c == '"' || c == '\'':
			startStmt(line)
			start := line
			j := i + 1
			for j < n && style[j] != c && style[j] != '\n' {
				if style[j] == '\\' {
					j++
				}
				j++
			}
			if j >= n || style[j] != c {
				out = append(out, diagnostic{severityError, start, fmt.Sprintf("unterminated string on line %d", start)})
				return out
			}
			stmt.WriteString(style[i : j+1])
			i = j
		case len(style)-i >= 4 && strings.EqualFold(style[i:i+4], "url("):
			startStmt(line)
			end := strings.IndexAny(style[i:], ")\n")
			if end < 0 || style[i+end] != ')' {
				out = append(out, diagnostic{severityError, line, fmt.Sprintf("unterminated url( on line %d", line)})
				return out
			}
			stmt.WriteString(style[i : i+end+1])
			i += end
		case c == '{':
			// The buffered text is a selector, not a declaration.
			stmt.Reset()
			opened = append(opened, line)
		case c == '}':
			if len(opened) == 0 {
				out = append(out, diagnostic{severityError, line, fmt.Sprintf("unexpected '}' on line %d", line)})
				stmt.Reset()
				continue
			}
			flush(true)
			opened = opened[:len(opened)-1]
		case c == ';':
			flush(true)
		case c == ' ' || c == '\t' || c == '\r':
			if stmt.Len() > 0 {
				stmt.WriteByte(c)
			}
		default:
			startStmt(line)
			stmt.WriteByte(c)
		}
	}

	for _, l := range opened {
		out = append(out, diagnostic{severityError, l, fmt.Sprintf("missing '}' for block opened on line %d", l)})
	}
	if len(opened) == 0 {
		flush(false)
	}
	return out
}
