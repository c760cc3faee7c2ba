/*
	Host-native filename rules: case-insensitive collation and wildcard
	matching, as a Windows-style projection host applies them.

	Listing order and name lookup must agree with each other, so both the
	snapshot sort and the metadata lookup go through this package.
*/
package names

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Compare orders two names the way the host sorts a directory:
// rune by rune after simple uppercase mapping; a name which is a prefix
// of another sorts first.
func Compare(a, b string) int {
	for a != "" && b != "" {
		ra, na := utf8.DecodeRuneInString(a)
		rb, nb := utf8.DecodeRuneInString(b)
		ua, ub := unicode.ToUpper(ra), unicode.ToUpper(rb)
		if ua != ub {
			if ua < ub {
				return -1
			}
			return 1
		}
		a, b = a[na:], b[nb:]
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// Equal reports whether two names denote the same file on the host.
func Equal(a, b string) bool {
	return Compare(a, b) == 0
}

// Wildcard characters understood in search expressions.
// The last three are the DOS compatibility forms.
const (
	Star    = '*'
	Qmark   = '?'
	DosQm   = '>'
	DosStar = '<'
	DosDot  = '"'
)

// HasWildcard reports whether expr contains any wildcard character.
func HasWildcard(expr string) bool {
	return strings.ContainsAny(expr, "*?<>\"")
}

/*
	Match reports whether name matches the search expression expr,
	case-insensitively.

	An empty expression matches everything.  `*` matches any run of
	characters and `?` exactly one.  The DOS forms: `>` matches one
	character, or nothing when positioned at a '.' or the end of the name;
	`<` matches any run that does not consume the final '.' of the name;
	`"` matches a '.' or the end of the name.
*/
func Match(name, expr string) bool {
	if expr == "" {
		return true
	}
	if !HasWildcard(expr) {
		return Equal(name, expr)
	}
	m := matcher{
		name: []rune(name),
		expr: []rune(expr),
	}
	m.lastDot = -1
	for i, r := range m.name {
		if r == '.' {
			m.lastDot = i
		}
	}
	m.memo = make([]int8, (len(m.name)+1)*(len(m.expr)+1))
	return m.match(0, 0)
}

type matcher struct {
	name    []rune
	expr    []rune
	lastDot int
	memo    []int8 // 0 unknown, 1 match, 2 no match
}

func (m *matcher) match(i, j int) bool {
	slot := i*(len(m.expr)+1) + j
	switch m.memo[slot] {
	case 1:
		return true
	case 2:
		return false
	}
	ok := m.step(i, j)
	if ok {
		m.memo[slot] = 1
	} else {
		m.memo[slot] = 2
	}
	return ok
}

func (m *matcher) step(i, j int) bool {
	if j == len(m.expr) {
		return i == len(m.name)
	}
	atEnd := i == len(m.name)
	switch c := m.expr[j]; c {
	case Star:
		for k := i; k <= len(m.name); k++ {
			if m.match(k, j+1) {
				return true
			}
		}
		return false
	case Qmark:
		return !atEnd && m.match(i+1, j+1)
	case DosQm:
		if atEnd || m.name[i] == '.' {
			return m.match(i, j+1)
		}
		return m.match(i+1, j+1)
	case DosStar:
		limit := len(m.name)
		if m.lastDot >= i {
			limit = m.lastDot
		}
		for k := i; k <= limit; k++ {
			if m.match(k, j+1) {
				return true
			}
		}
		return false
	case DosDot:
		if atEnd {
			return m.match(i, j+1)
		}
		return m.name[i] == '.' && m.match(i+1, j+1)
	default:
		return !atEnd && unicode.ToUpper(m.name[i]) == unicode.ToUpper(c) && m.match(i+1, j+1)
	}
}
