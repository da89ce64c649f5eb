package validator

import "strings"

// identifierTokens returns the lowercased identifier tokens of a SQL text
// with string literals and comments removed. It is a scanner, not a parser:
// enough structure to tell a table reference from the same word inside a
// quoted literal, which plain substring search cannot.
func identifierTokens(sqlText string) []string {
	var tokens []string
	src := []byte(sqlText)
	i := 0
	n := len(src)

	for i < n {
		c := src[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			// Skip quoted literal/identifier; doubled quotes escape.
			quote := c
			i++
			for i < n {
				if src[i] == quote {
					if i+1 < n && src[i+1] == quote {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
		case c == '-' && i+1 < n && src[i+1] == '-':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '*':
			i += 2
			for i+1 < n && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			i += 2
		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(src[i]) {
				i++
			}
			tokens = append(tokens, strings.ToLower(string(src[start:i])))
		default:
			i++
		}
	}
	return tokens
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
