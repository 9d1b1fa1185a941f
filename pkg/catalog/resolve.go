package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is matched by every LookupError.
var ErrNotFound = errors.New("not found")

// ErrEmpty is returned when a filter receives no values.
var ErrEmpty = errors.New("at least one value is required")

// LookupError reports a name that could not be resolved to a code.
type LookupError struct {
	Kind  Kind
	Value string
	// Hint names the discovery function that lists valid values.
	Hint string
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("could not find %s %q", e.Kind, e.Value)
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

// Is makes errors.Is(err, ErrNotFound) true for lookup failures.
func (e *LookupError) Is(target error) bool {
	return target == ErrNotFound
}

// Ref is a filter argument: either a display name or a numeric code.
type Ref struct {
	name   string
	code   int
	isCode bool
}

// Name returns a Ref holding a display name.
func Name(s string) Ref { return Ref{name: s} }

// Code returns a Ref holding a numeric code.
func Code(n int) Ref { return Ref{code: n, isCode: true} }

// Names converts display names to refs.
func Names(names ...string) []Ref {
	out := make([]Ref, len(names))
	for i, n := range names {
		out[i] = Name(n)
	}
	return out
}

// Codes converts numeric codes to refs.
func Codes(codes ...int) []Ref {
	out := make([]Ref, len(codes))
	for i, c := range codes {
		out[i] = Code(c)
	}
	return out
}

// ParseRef interprets s as a code when it is an integer and as a name
// otherwise. Used for command-line arguments.
func ParseRef(s string) Ref {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Code(n)
	}
	return Name(s)
}

// ParseRefs applies ParseRef to every element.
func ParseRefs(values []string) []Ref {
	out := make([]Ref, 0, len(values))
	for _, v := range values {
		out = append(out, ParseRef(v))
	}
	return out
}

// IsCode reports whether the ref holds a numeric code.
func (r Ref) IsCode() bool { return r.isCode }

// Code returns the numeric code; valid only when IsCode is true.
func (r Ref) Code() int { return r.code }

// Name returns the display name; valid only when IsCode is false.
func (r Ref) Name() string { return r.name }

func (r Ref) String() string {
	if r.isCode {
		return strconv.Itoa(r.code)
	}
	return r.name
}

var hints = map[Kind]string{
	KindState:     "use AvailableStates(%q) to search",
	KindZone:      "use AvailableZones(%q) to search",
	KindCommodity: "use AvailableCommodities(%q) to search",
	KindMode:      "use AvailableModes() to list modes",
}

// Resolve maps refs to codes using the table for kind. Codes pass through
// unchanged; names must resolve or a *LookupError is returned.
func (c *Catalog) Resolve(kind Kind, refs []Ref) ([]int, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%s filter: %w", kind, ErrEmpty)
	}

	t := c.Table(kind)
	codes := make([]int, 0, len(refs))
	for _, r := range refs {
		if r.isCode {
			codes = append(codes, r.code)
			continue
		}
		code, ok := t.Lookup(r.name)
		if !ok {
			return nil, c.lookupError(kind, r.name)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func (c *Catalog) lookupError(kind Kind, value string) *LookupError {
	hint := hints[kind]
	if kind == KindMode {
		if names := c.modeNames(); names != "" {
			hint = "available modes: " + names
		}
	} else if hint != "" {
		hint = fmt.Sprintf(hint, value)
	}
	return &LookupError{Kind: kind, Value: value, Hint: hint}
}

func (c *Catalog) modeNames() string {
	if c.Modes == nil {
		return ""
	}
	names := make([]string, 0, len(c.Modes.Entries))
	for _, e := range c.Modes.Entries {
		names = append(names, e.Name())
	}
	return strings.Join(names, ", ")
}

// ResolveStates resolves state names or FIPS codes.
func (c *Catalog) ResolveStates(refs []Ref) ([]int, error) {
	return c.Resolve(KindState, refs)
}

// ResolveZones resolves FAF zone names or codes.
func (c *Catalog) ResolveZones(refs []Ref) ([]int, error) {
	return c.Resolve(KindZone, refs)
}

// ResolveCommodities resolves commodity names or SCTG2 codes.
func (c *Catalog) ResolveCommodities(refs []Ref) ([]int, error) {
	return c.Resolve(KindCommodity, refs)
}

// ResolveModes resolves mode names or codes.
func (c *Catalog) ResolveModes(refs []Ref) ([]int, error) {
	return c.Resolve(KindMode, refs)
}
