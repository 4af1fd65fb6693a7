// tokengate validates PASETO v2 tokens against a revocation store and
// subject roster.
//
// Usage:
//
//	tokengate validate --path local-access --session-id <id> <token>
//	tokengate revoke --reason "key leaked" <token-id>
//	tokengate check <token-id>
//	tokengate sweep [--watch]
//	tokengate version
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopforge/tokengate/internal/app"
	"github.com/shopforge/tokengate/internal/gate"
	"github.com/shopforge/tokengate/internal/revocation"
	"github.com/shopforge/tokengate/pkg/pasetox"
	"github.com/shopforge/tokengate/pkg/slogx"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		// Rejected tokens exit 2 so scripts can tell a bad token from an
		// operational failure.
		if _, ok := gate.KindOf(err); ok {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("no command given")
	}

	switch args[0] {
	case "validate":
		return runValidate(args[1:])
	case "revoke":
		return runRevoke(args[1:])
	case "check":
		return runCheck(args[1:])
	case "sweep":
		return runSweep(args[1:])
	case "version", "--version":
		fmt.Printf("tokengate %s\n", app.BuildVersion)
		return nil
	case "help", "--help", "-h":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `tokengate - PASETO v2 token validation and revocation

USAGE
    tokengate validate --path <path> [--session-id <id>] [--principal-id <id>] <token>
    tokengate revoke --reason <reason> <token-id>
    tokengate check <token-id>
    tokengate sweep [--watch]
    tokengate version

PATHS
    public-access    v2.public access token (Ed25519)
    local-access     v2.local access token (XChaCha20-Poly1305)
    local-refresh    v2.local refresh token

The token may also be piped on stdin. Configuration comes from the YAML
file named by TOKENGATE_CONFIG plus TOKENGATE_* environment variables.
`)
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	path := fs.String("path", "local-access", "validation path: public-access, local-access or local-refresh")
	sessionID := fs.String("session-id", "", "session id the token must be bound to")
	principalID := fs.String("principal-id", "", "principal id the subject must match (defaults to session id)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	token, err := tokenArg(fs)
	if err != nil {
		return err
	}

	if *principalID == "" {
		*principalID = *sessionID
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	engine, err := application.Engine(gate.StaticSession{
		SessionID:   *sessionID,
		PrincipalID: *principalID,
	})
	if err != nil {
		return fmt.Errorf("failed to build validation engine: %w", err)
	}

	// Each invocation gets a correlation id so engine log lines and any
	// revocation write it triggers can be tied together.
	ctx := slogx.WithContext(context.Background(), application.Logger())
	ctx = slogx.WithCorrelationID(ctx, "")

	var claims pasetox.Claims
	switch *path {
	case "public-access":
		claims, err = engine.ValidatePublicAccess(ctx, token)
	case "local-access":
		claims, err = engine.ValidateLocalAccess(ctx, token)
	case "local-refresh":
		claims, err = engine.ValidateLocalRefresh(ctx, token)
	default:
		return fmt.Errorf("unknown validation path %q", *path)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runRevoke(args []string) error {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	reason := fs.String("reason", "revoked by operator", "reason recorded against the token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("revoke takes exactly one token id")
	}
	tokenID := fs.Arg(0)

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	lifetime := cfg.MaxTokenLifetime
	if lifetime <= 0 {
		lifetime = gate.DefaultMaxTokenLifetime
	}

	ctx := context.Background()
	rec := revocation.NewRecord(tokenID, *reason, time.Now().UTC(), lifetime)
	if err := application.Gateway().Revoke(ctx, rec); err != nil {
		return fmt.Errorf("revoke %s: %w", tokenID, err)
	}

	fmt.Printf("revoked %s until %s\n", tokenID, rec.ExpiresAt.Format(time.RFC3339))
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("check takes exactly one token id")
	}
	tokenID := fs.Arg(0)

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	revoked, err := application.Gateway().IsRevoked(context.Background(), tokenID)
	if err != nil {
		return fmt.Errorf("check %s: %w", tokenID, err)
	}

	if revoked {
		fmt.Printf("%s revoked\n", tokenID)
	} else {
		fmt.Printf("%s clear\n", tokenID)
	}
	return nil
}

func runSweep(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	watch := fs.Bool("watch", false, "keep sweeping on the configured interval until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	if *watch {
		return application.Watch()
	}
	return application.Sweep(context.Background())
}

// tokenArg returns the token from the first positional argument, falling
// back to a single line on stdin so tokens can be piped in.
func tokenArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() > 1 {
		return "", fmt.Errorf("validate takes at most one token")
	}
	if fs.NArg() == 1 {
		return fs.Arg(0), nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read token from stdin: %w", err)
		}
		return "", fmt.Errorf("no token given")
	}
	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return "", fmt.Errorf("no token given")
	}
	return token, nil
}
