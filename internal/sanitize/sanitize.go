package sanitize

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"podium/internal/services"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Token converts a display string to a lowercase filesystem-safe token
// containing only [a-z0-9_]. Accented letters are folded to their base form,
// runs of other characters collapse to a single underscore, and leading or
// trailing underscores are trimmed. A string with no usable characters fails
// with services.ErrInvalidName.
func Token(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if folded, _, err := transform.String(stripMarks, trimmed); err == nil {
		trimmed = folded
	}

	var b strings.Builder
	lastUnderscore := true
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "", services.Wrap(services.ErrInvalidName, "sanitize", "tokenize",
			fmt.Sprintf("name %q contains no usable characters", value), nil)
	}
	return out, nil
}

// Table assigns stable, collision-free tokens to display names within one
// episode. The first name to claim a token keeps it; later distinct names
// that sanitize identically receive a numeric suffix. Repeated lookups of the
// same name always return the same token. Safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	byName  map[string]string
	byToken map[string]string
}

// NewTable returns an empty assignment table.
func NewTable() *Table {
	return &Table{
		byName:  make(map[string]string),
		byToken: make(map[string]string),
	}
}

// Assign returns the token for a display name, computing and recording it on
// first use. Distinct names that collide are disambiguated with _2, _3, ...
func (t *Table) Assign(name string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if token, ok := t.byName[name]; ok {
		return token, nil
	}

	base, err := Token(name)
	if err != nil {
		return "", err
	}

	token := base
	for i := 2; ; i++ {
		owner, taken := t.byToken[token]
		if !taken || owner == name {
			break
		}
		token = fmt.Sprintf("%s_%d", base, i)
	}

	t.byName[name] = token
	t.byToken[token] = name
	return token, nil
}

// Lookup returns the recorded token for a name without assigning one.
func (t *Table) Lookup(name string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	token, ok := t.byName[name]
	return token, ok
}

// Mapping returns a copy of the recorded display-name → token assignments.
func (t *Table) Mapping() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.byName))
	for name, token := range t.byName {
		out[name] = token
	}
	return out
}
