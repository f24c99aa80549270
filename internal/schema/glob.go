package schema

import (
	"path"
	"regexp"
	"strings"
)

// Glob matches slash-separated relative paths. Supported syntax:
//   *   any run of characters within one path segment
//   ?   any single character except '/'
//   **  any run of segments (including none)
// A pattern without a '/' also matches against the path's base name, so
// ".env.example" covers that file at any depth.
type Glob struct {
	src      string
	re       *regexp.Regexp
	baseOnly bool
}

func CompileGlob(pattern string) (*Glob, error) {
	p := strings.TrimPrefix(path.Clean(strings.TrimSpace(pattern)), "./")
	re, err := regexp.Compile("^" + globToRegexp(p) + "$")
	if err != nil {
		return nil, err
	}
	return &Glob{src: p, re: re, baseOnly: !strings.Contains(p, "/")}, nil
}

func (g *Glob) String() string { return g.src }

// Match tests a slash-separated path relative to the scan root.
func (g *Glob) Match(rel string) bool {
	rel = strings.TrimPrefix(path.Clean(rel), "./")
	if g.re.MatchString(rel) {
		return true
	}
	return g.baseOnly && g.re.MatchString(path.Base(rel))
}

func globToRegexp(p string) string {
	var sb strings.Builder
	for i := 0; i < len(p); i++ {
		switch c := p[i]; c {
		case '*':
			if i+1 < len(p) && p[i+1] == '*' {
				// "**/" or trailing "**" spans whole segments
				if i+2 < len(p) && p[i+2] == '/' {
					sb.WriteString(`(?:[^/]*/)*`)
					i += 2
				} else {
					sb.WriteString(`.*`)
					i++
				}
			} else {
				sb.WriteString(`[^/]*`)
			}
		case '?':
			sb.WriteString(`[^/]`)
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return sb.String()
}
