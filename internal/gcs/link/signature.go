package link

import (
	"crypto/sha256"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// DeriveKey turns a signing passphrase into the 32-byte link key. Both
// ends derive the same key from the same passphrase.
func DeriveKey(passphrase string) *frame.V2Key {
	sum := sha256.Sum256([]byte(passphrase))
	return frame.NewV2Key(sum[:])
}

// Verifier checks the authenticity of signed inbound frames against the
// configured key. Signing is opportunistic: unsigned traffic always
// passes, and without a key everything passes. Only a signed frame whose
// signature does not match the key is rejected.
type Verifier struct {
	key       *frame.V2Key
	dialectRW *dialect.ReadWriter
}

// NewVerifier creates a Verifier for key. A nil key yields a pass-through
// verifier.
func NewVerifier(key *frame.V2Key) (*Verifier, error) {
	drw, err := dialect.NewReadWriter(common.Dialect)
	if err != nil {
		return nil, err
	}
	return &Verifier{key: key, dialectRW: drw}, nil
}

// Verify reports whether fr should be accepted.
func (v *Verifier) Verify(fr frame.Frame) bool {
	if v == nil || v.key == nil {
		return true
	}

	v2, ok := fr.(*frame.V2Frame)
	if !ok || v2.Signature == nil {
		return true
	}

	// The signature hash covers the encoded payload, so a frame whose
	// message was already decoded has to be re-encoded first.
	raw, ok := v2.Message.(*message.MessageRaw)
	if !ok {
		mrw := v.dialectRW.GetMessage(v2.Message.GetID())
		if mrw == nil {
			return false
		}
		raw = mrw.Write(v2.Message, true)
	}

	clone := *v2
	clone.Message = raw
	return *clone.GenerateSignature(v.key) == *v2.Signature
}
