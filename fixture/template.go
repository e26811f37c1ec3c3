package fixture

import (
	"fmt"
	"sort"
	"strings"
)

// Location is the placeholder the not-logged-in message uses for the route that was requested.
const Location = "LOCATION"

// Template is a message containing $NAME or ${NAME} placeholders. NAME starts with a letter and continues with
// letters, digits or underscores. Any other $ is literal text.
type Template string

func isNameStart(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isNameStart(c) || ('0' <= c && c <= '9') || c == '_'
}

// placeholderAt returns the name of the placeholder starting at s[i] == '$' and the index just past it. ok is false
// when the $ does not start a placeholder.
func placeholderAt(s string, i int) (name string, end int, ok bool) {
	j := i + 1
	if j < len(s) && s[j] == '{' {
		n := strings.IndexByte(s[j+1:], '}')
		if n < 0 {
			return "", 0, false
		}
		name = s[j+1 : j+1+n]
		if name == "" || !isNameStart(name[0]) {
			return "", 0, false
		}
		for k := 1; k < len(name); k++ {
			if !isNameByte(name[k]) {
				return "", 0, false
			}
		}
		return name, j + 1 + n + 1, true
	}

	if j >= len(s) || !isNameStart(s[j]) {
		return "", 0, false
	}
	k := j + 1
	for k < len(s) && isNameByte(s[k]) {
		k++
	}
	return s[j:k], k, true
}

// expand replaces each placeholder in t with mapping(name) and copies everything else through.
func (t Template) expand(mapping func(name string) string) string {
	s := string(t)
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] == '$' {
			if name, end, ok := placeholderAt(s, i); ok {
				b.WriteString(mapping(name))
				i = end
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}

	return b.String()
}

// Placeholders returns the distinct placeholder names in t, sorted.
func (t Template) Placeholders() []string {
	seen := map[string]struct{}{}
	t.expand(func(name string) string {
		seen[name] = struct{}{}
		return ""
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expand substitutes every placeholder in t. It is an error for t to contain a placeholder missing from values or for
// values to name a placeholder t does not contain.
func (t Template) Expand(values map[string]string) (string, error) {
	var missing []string
	used := map[string]bool{}
	s := t.expand(func(name string) string {
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return ""
		}
		used[name] = true
		return v
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("template %q: no value for %s", t, strings.Join(missing, ", "))
	}

	var unknown []string
	for name := range values {
		if !used[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return "", fmt.Errorf("template %q: no placeholder for %s", t, strings.Join(unknown, ", "))
	}

	return s, nil
}

func (t Template) Has(name string) bool {
	for _, n := range t.Placeholders() {
		if n == name {
			return true
		}
	}
	return false
}
