package pasetox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrClaims       = errors.New("pasetox: invalid claims")
	ErrEmptyPayload = errors.New("pasetox: empty payload")
	ErrClaimMissing = errors.New("pasetox: claim missing")
	ErrClaimType    = errors.New("pasetox: claim type mismatch")
)

// ValueKind discriminates the three claim value categories a payload may
// carry. Anything else in the JSON is rejected at parse time.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindTime
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindTime:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Value is a single claim value: exactly one of string, integer or
// timestamp. Accessors for the wrong category fail rather than coerce, so
// a token that smuggles `"exp": "soon"` never silently becomes a zero time.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	ts   time.Time
}

func StringValue(s string) Value  { return Value{kind: KindString, str: s} }
func IntValue(n int64) Value      { return Value{kind: KindInt, num: n} }
func TimeValue(t time.Time) Value { return Value{kind: KindTime, ts: t, str: t.Format(time.RFC3339)} }

// Kind reports which category this value holds.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string value, or ErrClaimType for other kinds.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("%w: want string, have %s", ErrClaimType, v.kind)
	}
	return v.str, nil
}

// AsInt returns the integer value, or ErrClaimType for other kinds.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, fmt.Errorf("%w: want integer, have %s", ErrClaimType, v.kind)
	}
	return v.num, nil
}

// AsTime returns the timestamp value, or ErrClaimType for other kinds.
func (v Value) AsTime() (time.Time, error) {
	if v.kind != KindTime {
		return time.Time{}, fmt.Errorf("%w: want timestamp, have %s", ErrClaimType, v.kind)
	}
	return v.ts, nil
}

// String renders the value for logs and CLI output.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.num)
	default:
		return v.str
	}
}

// MarshalJSON writes the value back out the way it arrived: timestamps as
// RFC3339 strings, integers as bare numbers.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.num)
	case KindTime:
		return json.Marshal(v.ts.Format(time.RFC3339))
	default:
		return json.Marshal(v.str)
	}
}

// Claims is a parsed, read-only claim set. The backing map is never handed
// out, so two callers holding the "same" claims cannot see each other's
// mutations because there are none to see.
type Claims struct {
	values map[string]Value
}

// NewClaims builds a claim set from already-typed values. Mostly useful for
// tests and for minting; validation paths get their Claims from ParseClaims.
func NewClaims(values map[string]Value) Claims {
	m := make(map[string]Value, len(values))
	for k, v := range values {
		m[k] = v
	}
	return Claims{values: m}
}

// ParseClaims decodes a claims payload. The payload must be a flat JSON
// object whose values are strings, integers, or RFC3339 timestamps; strings
// that parse as RFC3339 become timestamps. Empty input is reported
// distinctly from malformed input because the two mean different things
// upstream: a null payload is a minting bug, garbage is an attack.
func ParseClaims(data []byte) (Claims, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Claims{}, ErrEmptyPayload
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrClaims, err)
	}
	if dec.More() {
		return Claims{}, fmt.Errorf("%w: trailing data after object", ErrClaims)
	}

	values := make(map[string]Value, len(raw))
	for name, rv := range raw {
		v, err := decodeValue(rv)
		if err != nil {
			return Claims{}, fmt.Errorf("%w: claim %q: %v", ErrClaims, name, err)
		}
		values[name] = v
	}
	return Claims{values: values}, nil
}

func decodeValue(raw any) (Value, error) {
	switch rv := raw.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, rv); err == nil {
			return Value{kind: KindTime, ts: ts, str: rv}, nil
		}
		return StringValue(rv), nil
	case json.Number:
		if strings.ContainsAny(rv.String(), ".eE") {
			return Value{}, fmt.Errorf("non-integral number %s", rv)
		}
		n, err := rv.Int64()
		if err != nil {
			return Value{}, fmt.Errorf("number out of range: %s", rv)
		}
		return IntValue(n), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Has reports whether a claim is present, whatever its kind.
func (c Claims) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Get returns the named claim value.
func (c Claims) Get(name string) (Value, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Len reports the number of claims.
func (c Claims) Len() int { return len(c.values) }

// Names returns the claim names in sorted order.
func (c Claims) Names() []string {
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// String returns the named claim as a string.
func (c Claims) String(name string) (string, error) {
	v, ok := c.values[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrClaimMissing, name)
	}
	return v.AsString()
}

// Int returns the named claim as an integer.
func (c Claims) Int(name string) (int64, error) {
	v, ok := c.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrClaimMissing, name)
	}
	return v.AsInt()
}

// Time returns the named claim as a timestamp.
func (c Claims) Time(name string) (time.Time, error) {
	v, ok := c.values[name]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrClaimMissing, name)
	}
	return v.AsTime()
}

// Clone returns an independent copy. Values are immutable so a fresh map is
// all that is needed.
func (c Claims) Clone() Claims {
	return NewClaims(c.values)
}

// MarshalJSON renders the claim set as a JSON object, for CLI output and
// structured logs.
func (c Claims) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.values)
}
