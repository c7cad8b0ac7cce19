// Package version parses and orders appliance version identifiers of the form
// major.minor.micro-build[-smallfix].
package version

import (
	"fmt"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Fields is the number of numeric fields in a Key.
const Fields = 5

// Key is the normalized, totally ordered form of a version string:
// (major, minor, micro, build, smallfix). The zero Key is Invalid.
type Key struct {
	fields [Fields]uint64
	valid  bool
	raw    string
	v      *goversion.Version
}

// Invalid compares older than every valid Key and is never an update target.
var Invalid = Key{}

// Parse splits s on '.', '-' and '_' into at most five numeric fields. Missing
// trailing fields default to 0. Malformed input yields Invalid.
func Parse(s string) Key {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if s == "" {
		return Invalid
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
	// FieldsFunc swallows empty fields, "1..2" must still be rejected
	if len(parts) == 0 || len(parts) > Fields || strings.Count(s, ".")+strings.Count(s, "-")+strings.Count(s, "_") != len(parts)-1 {
		return Invalid
	}

	k := Key{valid: true, raw: s}
	for i, p := range parts {
		// go-version holds segments as int64
		n, err := strconv.ParseUint(p, 10, 63)
		if err != nil {
			return Invalid
		}
		k.fields[i] = n
	}
	v, err := goversion.NewVersion(k.dotted())
	if err != nil {
		return Invalid
	}
	k.v = v
	return k
}

// MustParse is like Parse but panics on invalid input. Intended for tests and constants.
func MustParse(s string) Key {
	k := Parse(s)
	if !k.IsValid() {
		panic(fmt.Sprintf("version: invalid version %q", s))
	}
	return k
}

// IsValid reports whether k was parsed successfully.
func (k Key) IsValid() bool { return k.valid }

// Raw returns the string k was parsed from.
func (k Key) Raw() string { return k.raw }

// String returns the canonical form major.minor.micro-build-smallfix, or
// "invalid" for an invalid key.
func (k Key) String() string {
	if !k.valid {
		return "invalid"
	}
	f := k.fields
	return fmt.Sprintf("%d.%d.%d-%d-%d", f[0], f[1], f[2], f[3], f[4])
}

// dotted renders every field dot separated, the form go-version understands.
func (k Key) dotted() string {
	f := k.fields
	return fmt.Sprintf("%d.%d.%d.%d.%d", f[0], f[1], f[2], f[3], f[4])
}

// Compare returns -1, 0 or 1 comparing a with b field by field.
func Compare(a, b Key) int {
	switch {
	case !a.valid && !b.valid:
		return 0
	case !a.valid:
		return -1
	case !b.valid:
		return 1
	}
	return a.v.Compare(b.v)
}

// Less reports whether k is older than other.
func (k Key) Less(other Key) bool { return Compare(k, other) < 0 }

// Greater reports whether k is newer than other.
func (k Key) Greater(other Key) bool { return Compare(k, other) > 0 }

// Equal reports whether k and other denote the same version.
func (k Key) Equal(other Key) bool { return Compare(k, other) == 0 }

// Normalize re-serializes s canonically. Invalid input normalizes to "".
func Normalize(s string) string {
	k := Parse(s)
	if !k.IsValid() {
		return ""
	}
	return k.String()
}
