package gate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopforge/tokengate/pkg/pasetox"
)

// Token type values carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// accessRequiredClaims is the required set for access tokens, checked in
// this order; the first absent name decides the error and the revocation
// reason. Refresh tokens drop scope.
var accessRequiredClaims = []string{"iss", "sub", "aud", "exp", "nbf", "iat", "jti", "scope", "type"}

var refreshRequiredClaims = []string{"iss", "sub", "aud", "exp", "nbf", "iat", "jti", "type"}

// failure is a tagged check outcome. The checks themselves are pure; the
// engine owns the side effects, so a failing check reports the revocation
// it owes (revokeReason non-empty) instead of performing it.
type failure struct {
	kind         Kind
	reason       string
	revokeReason string
}

func (f *failure) String() string {
	if f == nil {
		return "ok"
	}
	return fmt.Sprintf("%s: %s", f.kind, f.reason)
}

func fail(kind Kind, reason string) *failure {
	return &failure{kind: kind, reason: reason}
}

func failAndRevoke(kind Kind, reason string) *failure {
	return &failure{kind: kind, reason: reason, revokeReason: reason}
}

// claimString reads a string claim, treating absence as the zero value.
// The early binding checks run before the required-claims step and a
// missing claim there must fall through to a natural comparison failure,
// not a presence error.
func claimString(c pasetox.Claims, name string) (string, *failure) {
	s, err := c.String(name)
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, pasetox.ErrClaimMissing):
		return "", nil
	default:
		return "", fail(KindClaimsParsing, fmt.Sprintf("claim %q: %v", name, err))
	}
}

// requireString reads a string claim that the required-claims step has
// already guaranteed present. Absence still maps to MissingClaim so the
// checks stay safe to call in isolation.
func requireString(c pasetox.Claims, name string) (string, *failure) {
	s, err := c.String(name)
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, pasetox.ErrClaimMissing):
		return "", failAndRevoke(KindMissingClaim, "missing claim: "+name)
	default:
		return "", fail(KindClaimsParsing, fmt.Sprintf("claim %q: %v", name, err))
	}
}

// requireTime reads a timestamp claim, accepting either an RFC 3339 string
// or an integer of Unix seconds. Issuers disagree on which to mint, so the
// engine takes both.
func requireTime(c pasetox.Claims, name string) (time.Time, *failure) {
	v, ok := c.Get(name)
	if !ok {
		return time.Time{}, failAndRevoke(KindMissingClaim, "missing claim: "+name)
	}
	if ts, err := v.AsTime(); err == nil {
		return ts, nil
	}
	if n, err := v.AsInt(); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fail(KindClaimsParsing, fmt.Sprintf("claim %q: not a timestamp", name))
}

// splitScopes parses the comma-separated scope claim. Blank entries are
// dropped so "a,,b" and "a, b" read the same.
func splitScopes(scope string) []string {
	parts := strings.Split(scope, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// checkSessionBinding compares the token subject against the caller's
// current session id. A mismatch is treated as a replayed or stolen token.
func checkSessionBinding(c pasetox.Claims, sessionID string) *failure {
	sub, f := claimString(c, "sub")
	if f != nil {
		return f
	}
	if sub != sessionID {
		return failAndRevoke(KindSessionMismatch, "session mismatch")
	}
	return nil
}

// checkSubjectStatus gates on live directory state. Disabled accounts are
// a routine authorization outcome, not a forgery signal, so no revocation.
func checkSubjectStatus(sub Subject) *failure {
	if !sub.Enabled {
		return fail(KindAccountDisabled, "account disabled")
	}
	return nil
}

// checkScope requires every role the token's scope claim asks for to still
// be granted by the directory.
func checkScope(c pasetox.Claims, sub Subject) *failure {
	scope, f := claimString(c, "scope")
	if f != nil {
		return f
	}
	for _, want := range splitScopes(scope) {
		if !sub.HasRole(want) {
			return fail(KindInvalidScope, "scope not granted: "+want)
		}
	}
	return nil
}

func checkRequiredClaims(c pasetox.Claims, required []string) *failure {
	for _, name := range required {
		if !c.Has(name) {
			return failAndRevoke(KindMissingClaim, "missing claim: "+name)
		}
	}
	return nil
}

func checkTokenType(c pasetox.Claims, want string) *failure {
	got, f := requireString(c, "type")
	if f != nil {
		return f
	}
	if got != want {
		return failAndRevoke(KindInvalidTokenType, "invalid token type")
	}
	return nil
}

// checkTiming runs the three clock checks, each with skew tolerance on its
// forgiving side. The expiry boundary is inclusive: at now == exp+skew the
// token still passes.
func checkTiming(c pasetox.Claims, now time.Time, skew time.Duration) *failure {
	exp, f := requireTime(c, "exp")
	if f != nil {
		return f
	}
	if now.After(exp.Add(skew)) {
		return failAndRevoke(KindTokenExpired, "expired")
	}
	nbf, f := requireTime(c, "nbf")
	if f != nil {
		return f
	}
	if now.Before(nbf.Add(-skew)) {
		return failAndRevoke(KindTokenNotYetValid, "not yet valid")
	}
	iat, f := requireTime(c, "iat")
	if f != nil {
		return f
	}
	if now.Before(iat.Add(-skew)) {
		return failAndRevoke(KindTokenIssuedInFuture, "issued in future")
	}
	return nil
}

func checkIssuer(c pasetox.Claims, issuer string) *failure {
	got, f := requireString(c, "iss")
	if f != nil {
		return f
	}
	if got != issuer {
		return failAndRevoke(KindInvalidIssuer, "invalid issuer")
	}
	return nil
}

func checkAudience(c pasetox.Claims, audience string) *failure {
	got, f := requireString(c, "aud")
	if f != nil {
		return f
	}
	if got != audience {
		return failAndRevoke(KindInvalidAudience, "invalid audience")
	}
	return nil
}

// checkPrincipal re-compares the subject against the current principal id.
// Deliberately redundant with the session binding; kept for compatibility
// with callers that track the two identities separately.
func checkPrincipal(c pasetox.Claims, principalID string) *failure {
	sub, f := claimString(c, "sub")
	if f != nil {
		return f
	}
	if sub != principalID {
		return failAndRevoke(KindInvalidSubject, "subject mismatch")
	}
	return nil
}
