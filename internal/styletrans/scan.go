package styletrans

import (
	"fmt"
	"strings"
)

// token is a top-level id selector found in style text.
type token struct {
	start, end int // byte offsets of the name, without the leading '#'
	name       string
}

// scan walks style text, skipping comments and strings. It returns the id
// selectors that appear outside any block and the first structural error.
func scan(style string) ([]token, error) {
	var (
		tokens []token
		depth  int
		line   = 1
		opened []int
	)
	for i := 0; i < len(style); i++ {
		c := style[i]
		switch {
		case c == '\n':
			line++
		case c == '/' && i+1 < len(style) && style[i+1] == '/':
			for i < len(style) && style[i] != '\n' {
				i++
			}
			line++
		case c == '/' && i+1 < len(style) && style[i+1] == '*':
			end := strings.Index(style[i+2:], "*/")
			if end < 0 {
				return tokens, fmt.Errorf("unterminated comment on line %d", line)
			}
			line += strings.Count(style[i:i+2+end], "\n")
			i += end + 3
		case c == '"' || c == '\'':
			j := i + 1
			for ; j < len(style) && style[j] != c; j++ {
				if style[j] == '\\' {
					j++
				} else if style[j] == '\n' {
					return tokens, fmt.Errorf("unterminated string on line %d", line)
				}
			}
			if j >= len(style) {
				return tokens, fmt.Errorf("unterminated string on line %d", line)
			}
			i = j
		case hasURL(style, i):
			// Unquoted urls may contain "//".
			end := strings.IndexAny(style[i:], ")\n")
			if end < 0 || style[i+end] != ')' {
				return tokens, fmt.Errorf("unterminated url( on line %d", line)
			}
			i += end
		case c == '{':
			depth++
			opened = append(opened, line)
		case c == '}':
			if depth == 0 {
				return tokens, fmt.Errorf("unexpected '}' on line %d", line)
			}
			depth--
			opened = opened[:len(opened)-1]
		case c == '@' && depth == 0:
			// Variable declarations may hold colour literals such as #fff.
			j := i + 1
			for j < len(style) && style[j] != ';' && style[j] != '{' {
				if style[j] == '\n' {
					line++
				}
				j++
			}
			if j < len(style) && style[j] == '{' {
				j--
			}
			i = j
		case c == '#' && depth == 0:
			j := i + 1
			for j < len(style) && isIdentByte(style[j]) {
				j++
			}
			if j > i+1 {
				tokens = append(tokens, token{start: i + 1, end: j, name: style[i+1 : j]})
				i = j - 1
			}
		}
	}
	if depth > 0 {
		return tokens, fmt.Errorf("missing '}' for block opened on line %d", opened[len(opened)-1])
	}
	return tokens, nil
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func checkSyntax(style string) error {
	_, err := scan(style)
	return err
}

// RewriteSelectorName renames the leading id selector of style, and every
// other top-level occurrence of the same id, to layer. Ids inside blocks,
// such as colour literals, are left alone.
func (t *Transformer) RewriteSelectorName(style, layer string) string {
	tokens, _ := scan(style)
	if len(tokens) == 0 {
		return style
	}
	leading := tokens[0].name
	if leading == layer {
		return style
	}

	var b strings.Builder
	b.Grow(len(style) + len(tokens)*len(layer))
	last := 0
	for _, tok := range tokens {
		if tok.name != leading {
			continue
		}
		b.WriteString(style[last:tok.start])
		b.WriteString(layer)
		last = tok.end
	}
	b.WriteString(style[last:])
	return b.String()
}

func hasURL(style string, i int) bool {
	return len(style)-i >= 4 && strings.EqualFold(style[i:i+4], "url(")
}
