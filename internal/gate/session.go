package gate

import "context"

// SessionContext tells the engine which session and principal the caller
// believes it is acting for. Access-token validation binds the token to
// both; a mismatch is treated as a stolen or replayed token.
type SessionContext interface {
	CurrentSessionID(ctx context.Context) (string, error)
	CurrentPrincipalID(ctx context.Context) (string, error)
}

type sessionKey struct{}

type sessionInfo struct {
	sessionID   string
	principalID string
}

// WithSession stamps a session and principal id onto a context for
// ContextSession to read back.
func WithSession(ctx context.Context, sessionID, principalID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionInfo{sessionID: sessionID, principalID: principalID})
}

// ContextSession reads session identity straight off the request context,
// as stamped by WithSession. Absent values come back empty, which the
// binding checks then treat as a mismatch against any non-empty claim.
type ContextSession struct{}

func (ContextSession) CurrentSessionID(ctx context.Context) (string, error) {
	info, _ := ctx.Value(sessionKey{}).(sessionInfo)
	return info.sessionID, nil
}

func (ContextSession) CurrentPrincipalID(ctx context.Context) (string, error) {
	info, _ := ctx.Value(sessionKey{}).(sessionInfo)
	return info.principalID, nil
}

// StaticSession returns fixed ids, for tools that validate one token for
// one known session.
type StaticSession struct {
	SessionID   string
	PrincipalID string
}

func (s StaticSession) CurrentSessionID(context.Context) (string, error)   { return s.SessionID, nil }
func (s StaticSession) CurrentPrincipalID(context.Context) (string, error) { return s.PrincipalID, nil }
