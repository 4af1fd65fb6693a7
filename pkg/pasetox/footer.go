package pasetox

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Footer is the authenticated-but-plaintext tail of a token. It carries the
// key id so a verifier knows which key the minter claims to have used. The
// claim is only honest once Verify/Decrypt succeeds, but reading it first is
// fine because key selection here is an exact-match check, not a lookup that
// could be steered somewhere dangerous.
type Footer struct {
	KID string `json:"kid"`
}

// ParseFooter decodes the footer JSON and requires a non-blank kid.
func ParseFooter(t Token) (Footer, error) {
	var f Footer
	if err := json.Unmarshal(t.footer, &f); err != nil {
		return Footer{}, fmt.Errorf("%w: %v", ErrFooter, err)
	}
	if strings.TrimSpace(f.KID) == "" {
		return Footer{}, fmt.Errorf("%w: missing kid", ErrFooter)
	}
	return f, nil
}

// EncodeFooter renders a footer for minting.
func EncodeFooter(f Footer) ([]byte, error) {
	out, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFooter, err)
	}
	return out, nil
}
