package store

import (
	"regexp"
	"strings"
)

// matcher is a compiled glob. A nil regexp matches everything.
type matcher struct {
	re *regexp.Regexp
}

func (m matcher) match(s string) bool {
	return m.re == nil || m.re.MatchString(s)
}

// Match reports whether s matches the glob pattern. It supports * ? [abc]
// [^a-z] and backslash escapes. An empty pattern matches everything.
func Match(pattern, s string) bool {
	return compileGlob(pattern).match(s)
}

func compileGlob(pattern string) matcher {
	if pattern == "" || pattern == "*" {
		return matcher{}
	}
	re, err := regexp.Compile(globToRegexp(pattern))
	if err != nil {
		// Unbalanced classes fall back to a literal comparison.
		re = regexp.MustCompile("^" + regexp.QuoteMeta(pattern) + "$")
	}
	return matcher{re: re}
}

func globToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("(?s)^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '\\':
			if i+1 < len(pattern) {
				i++
			}
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : i+1+end]
			i += end + 1
			b.WriteByte('[')
			if strings.HasPrefix(class, "^") {
				b.WriteByte('^')
				class = class[1:]
			}
			for j := 0; j < len(class); j++ {
				switch class[j] {
				case '\\', '[', ']', '^':
					b.WriteByte('\\')
				}
				b.WriteByte(class[j])
			}
			b.WriteByte(']')
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return b.String()
}
