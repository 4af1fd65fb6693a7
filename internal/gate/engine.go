// Package gate implements stateless validation of PASETO v2 bearer tokens
// with revocation side effects. Three validation paths are exposed, one per
// token flavor: public-access (signed), local-access and local-refresh
// (encrypted). Checks run in a fixed order and the first failure wins;
// failures that look like forgery or replay additionally revoke the token
// through the revocation gateway.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/shopforge/tokengate/internal/revocation"
	"github.com/shopforge/tokengate/pkg/pasetox"
	"github.com/shopforge/tokengate/pkg/slogx"
)

const tracerName = "github.com/shopforge/tokengate/internal/gate"

// Deps are the engine's collaborators. Keys, Directory, Session and Gateway
// are required; the rest default to production implementations.
type Deps struct {
	Keys      Keyring
	Directory Directory
	Session   SessionContext
	Gateway   revocation.Gateway

	// Crypto overrides the token cryptography, for tests that need to
	// prove it was or wasn't invoked. Nil means the real codec.
	Crypto CryptoProvider

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Engine is the validation engine. It is safe for concurrent use; the two
// permit pools are its only shared mutable state.
type Engine struct {
	cfg     Config
	keys    Keyring
	dir     Directory
	session SessionContext
	gateway revocation.Gateway
	crypto  CryptoProvider
	tracer  trace.Tracer
	now     func() time.Time

	validation *pool
	claims     *pool

	// Gateway write failures under a backend outage repeat at request
	// rate; the throttle keeps the log readable without going silent.
	gatewayLog rate.Sometimes
}

// New builds an engine from configuration and collaborators. Configuration
// is captured once; the engine never re-reads it.
func New(cfg Config, deps Deps) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Keys == nil || deps.Directory == nil || deps.Session == nil || deps.Gateway == nil {
		return nil, errors.New("gate: missing collaborator (keys, directory, session and gateway are required)")
	}
	if deps.Crypto == nil {
		deps.Crypto = codecProvider{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{
		cfg:        cfg,
		keys:       deps.Keys,
		dir:        deps.Directory,
		session:    deps.Session,
		gateway:    deps.Gateway,
		crypto:     deps.Crypto,
		tracer:     otel.Tracer(tracerName),
		now:        deps.Now,
		validation: newPool(cfg.ValidationPermits),
		claims:     newPool(cfg.ClaimsPermits),
		gatewayLog: rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}, nil
}

// ValidatePublicAccess validates a signed v2.public access token.
func (e *Engine) ValidatePublicAccess(ctx context.Context, token string) (pasetox.Claims, error) {
	return e.validate(ctx, PathPublicAccess, token)
}

// ValidateLocalAccess validates an encrypted v2.local access token.
func (e *Engine) ValidateLocalAccess(ctx context.Context, token string) (pasetox.Claims, error) {
	return e.validate(ctx, PathLocalAccess, token)
}

// ValidateLocalRefresh validates an encrypted v2.local refresh token. The
// refresh pipeline skips the session, directory and scope checks; refresh
// tokens are exchanged, not used to act.
func (e *Engine) ValidateLocalRefresh(ctx context.Context, token string) (pasetox.Claims, error) {
	return e.validate(ctx, PathLocalRefresh, token)
}

func (e *Engine) validate(ctx context.Context, path Path, token string) (pasetox.Claims, error) {
	ctx, span := e.tracer.Start(ctx, "gate.Validate",
		trace.WithAttributes(attribute.String("gate.path", string(path))))
	defer span.End()

	release, ok := e.validation.tryAcquire()
	if !ok {
		return pasetox.Claims{}, e.finish(span, failWith(KindTooManyRequests, "", "validation permits exhausted"))
	}
	defer release()

	claims, err := e.run(ctx, path, token)
	if err != nil {
		return pasetox.Claims{}, e.finish(span, err)
	}
	return claims, nil
}

// finish records the outcome on the span and passes the error through.
func (e *Engine) finish(span trace.Span, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		span.SetAttributes(attribute.String("gate.outcome", ve.Kind.String()))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (e *Engine) run(ctx context.Context, path Path, raw string) (pasetox.Claims, error) {
	l := slogx.FromContext(ctx)

	// 1. Structure first: length bounds, four segments, known header. No
	// cryptographic work happens until these pass.
	if n := len(raw); n < e.cfg.MinTokenLength || n > e.cfg.MaxTokenLength {
		return pasetox.Claims{}, failWith(KindInvalidTokenLength, "",
			fmt.Sprintf("token length %d outside [%d,%d]", n, e.cfg.MinTokenLength, e.cfg.MaxTokenLength))
	}
	t, err := pasetox.Parse(raw)
	if err != nil {
		return pasetox.Claims{}, failWith(KindInvalidTokenFormat, "", err.Error())
	}
	if t.Purpose() != purposeFor(path) {
		return pasetox.Claims{}, failWith(KindInvalidTokenFormat, "",
			fmt.Sprintf("purpose %q not valid on the %s path", t.Purpose(), path))
	}

	// 2. Verify or decrypt. Both paths bind the footer into the
	// cryptography, so the kid read in the next step is authenticated.
	payload, err := e.decode(t, path)
	if err != nil {
		return pasetox.Claims{}, err
	}

	// 3. Key id, exact match, before any claims work: a wrong-key token
	// never reaches the business checks.
	footer, err := pasetox.ParseFooter(t)
	if err != nil {
		return pasetox.Claims{}, failWith(KindInvalidKeyID, "", "footer carries no usable kid")
	}
	if footer.KID != e.cfg.expectedKID(path) {
		return pasetox.Claims{}, failWith(KindInvalidKeyID, "", fmt.Sprintf("unexpected key id %q", footer.KID))
	}

	// 4. Claims: ceiling, then parse.
	if len(payload) > e.cfg.MaxClaimsBytes {
		return pasetox.Claims{}, failWith(KindClaimsSizeExceeded, "",
			fmt.Sprintf("claims payload %d bytes over the %d ceiling", len(payload), e.cfg.MaxClaimsBytes))
	}
	claims, err := pasetox.ParseClaims(payload)
	if err != nil {
		if errors.Is(err, pasetox.ErrEmptyPayload) {
			return pasetox.Claims{}, failWith(KindNullPayload, "", "empty claims payload")
		}
		return pasetox.Claims{}, failWith(KindClaimsParsing, "", err.Error())
	}

	// 5. The claims pipeline runs under its own permit.
	release, ok := e.claims.tryAcquire()
	if !ok {
		return pasetox.Claims{}, failWith(KindTooManyRequests, "", "claims permits exhausted")
	}
	defer release()

	tokenID, f := claimString(claims, "jti")
	if f != nil {
		return pasetox.Claims{}, failWith(f.kind, "", f.reason)
	}
	if tokenID != "" {
		ctx = slogx.WithTokenID(ctx, tokenID)
		l = slogx.FromContext(ctx)
	}
	f, err = e.runChecks(ctx, path, claims, tokenID)
	if err != nil {
		return pasetox.Claims{}, err
	}
	if f != nil {
		if f.revokeReason != "" {
			e.revoke(ctx, tokenID, f.revokeReason)
		}
		l.Info("token rejected",
			slog.String("path", string(path)),
			slog.String("kind", f.kind.String()))
		return pasetox.Claims{}, failWith(f.kind, tokenID, f.reason)
	}

	l.Debug("token validated", slog.String("path", string(path)))
	return claims, nil
}

// decode runs the path's cryptography and maps failures onto the taxonomy:
// bad signature on the public path, bad authentication tag on the local
// paths. Key material problems are configuration faults and bubble plain.
func (e *Engine) decode(t pasetox.Token, path Path) ([]byte, error) {
	if path == PathPublicAccess {
		pub, err := e.keys.PublicKey(path)
		if err != nil {
			return nil, fmt.Errorf("gate: resolve public key: %w", err)
		}
		payload, err := e.crypto.VerifyPublic(t, pub)
		if err != nil {
			return nil, failWith(KindInvalidSignature, "", "signature verification failed")
		}
		return payload, nil
	}
	key, err := e.keys.SecretKey(path)
	if err != nil {
		return nil, fmt.Errorf("gate: resolve secret key: %w", err)
	}
	payload, err := e.crypto.DecryptLocal(t, key)
	if err != nil {
		return nil, failWith(KindInvalidToken, "", "decryption failed")
	}
	return payload, nil
}

func purposeFor(path Path) pasetox.Purpose {
	if path == PathPublicAccess {
		return pasetox.PurposePublic
	}
	return pasetox.PurposeLocal
}

// runChecks executes the ordered claims pipeline for the path. It returns
// a tagged failure for taxonomy outcomes, or an error for infrastructure
// faults (directory or gateway unreachable) that are nobody's forgery.
func (e *Engine) runChecks(ctx context.Context, path Path, c pasetox.Claims, tokenID string) (*failure, error) {
	if path == PathLocalRefresh {
		return e.refreshChecks(ctx, c, tokenID)
	}
	return e.accessChecks(ctx, c, tokenID)
}

func (e *Engine) accessChecks(ctx context.Context, c pasetox.Claims, tokenID string) (*failure, error) {
	// 1. Session binding: the subject must match the caller's session.
	sessionID, err := e.session.CurrentSessionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("gate: session context: %w", err)
	}
	if f := checkSessionBinding(c, sessionID); f != nil {
		return f, nil
	}

	// 2. Live subject state, then revocation state.
	sub, f := claimString(c, "sub")
	if f != nil {
		return f, nil
	}
	subject, err := e.dir.Lookup(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			return failAndRevoke(KindInvalidSubject, "unknown subject"), nil
		}
		return nil, fmt.Errorf("gate: directory lookup: %w", err)
	}
	if f := checkSubjectStatus(subject); f != nil {
		return f, nil
	}
	if f, err := e.checkNotRevoked(ctx, tokenID); f != nil || err != nil {
		return f, err
	}

	// 3. The token may not ask for roles the subject no longer holds.
	if f := checkScope(c, subject); f != nil {
		return f, nil
	}

	// 4. Presence, type, timing, issuer, audience.
	if f := checkRequiredClaims(c, accessRequiredClaims); f != nil {
		return f, nil
	}
	if f := checkTokenType(c, TypeAccess); f != nil {
		return f, nil
	}
	if f := checkTiming(c, e.now(), e.cfg.ClockSkew); f != nil {
		return f, nil
	}
	if f := checkIssuer(c, e.cfg.Issuer); f != nil {
		return f, nil
	}
	if f := checkAudience(c, e.cfg.Audience); f != nil {
		return f, nil
	}

	// 5. Principal re-check, kept for parity with the session binding.
	principalID, err := e.session.CurrentPrincipalID(ctx)
	if err != nil {
		return nil, fmt.Errorf("gate: session context: %w", err)
	}
	if f := checkPrincipal(c, principalID); f != nil {
		return f, nil
	}
	return nil, nil
}

func (e *Engine) refreshChecks(ctx context.Context, c pasetox.Claims, tokenID string) (*failure, error) {
	if f, err := e.checkNotRevoked(ctx, tokenID); f != nil || err != nil {
		return f, err
	}
	if f := checkRequiredClaims(c, refreshRequiredClaims); f != nil {
		return f, nil
	}
	if f := checkTokenType(c, TypeRefresh); f != nil {
		return f, nil
	}
	if f := checkTiming(c, e.now(), e.cfg.ClockSkew); f != nil {
		return f, nil
	}
	if f := checkIssuer(c, e.cfg.Issuer); f != nil {
		return f, nil
	}
	if f := checkAudience(c, e.cfg.Audience); f != nil {
		return f, nil
	}
	return nil, nil
}

// checkNotRevoked consults the gateway. A token without a jti has nothing
// to look up; the required-claims step reports the absence.
func (e *Engine) checkNotRevoked(ctx context.Context, tokenID string) (*failure, error) {
	if tokenID == "" {
		return nil, nil
	}
	revoked, err := e.gateway.IsRevoked(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("gate: revocation lookup: %w", err)
	}
	if revoked {
		return fail(KindInvalidToken, "token revoked"), nil
	}
	return nil, nil
}

// revoke is the pipeline's side effect, best-effort: a gateway failure is
// logged and the original validation failure still reaches the caller. The
// contextual logger already carries the token id.
func (e *Engine) revoke(ctx context.Context, tokenID, reason string) {
	l := slogx.FromContext(ctx)
	if tokenID == "" {
		l.Warn("revocation skipped: token carries no id", slog.String("reason", reason))
		return
	}
	rec := revocation.NewRecord(tokenID, reason, e.now(), e.cfg.MaxTokenLifetime)
	if err := e.gateway.Revoke(ctx, rec); err != nil {
		e.gatewayLog.Do(func() {
			l.Error("revocation write failed",
				slog.String("reason", reason),
				slog.Any("error", err))
		})
		return
	}
	l.Info("token revoked", slog.String("reason", reason))
}
