package link

import (
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

func signedFrame(t *testing.T, key *frame.V2Key) *frame.V2Frame {
	t.Helper()

	fr := &frame.V2Frame{
		SequenceNumber:     7,
		SystemID:           1,
		ComponentID:        1,
		Message:            &message.MessageRaw{ID: 0, Payload: []byte{0, 0, 0, 0, 0, 2, 3, 81, 3}},
		SignatureLinkID:    1,
		SignatureTimestamp: 123456,
	}
	fr.Signature = fr.GenerateSignature(key)
	return fr
}

func TestDeriveKey(t *testing.T) {
	a := DeriveKey("correct horse battery staple")
	b := DeriveKey("correct horse battery staple")
	c := DeriveKey("something else")

	if *a != *b {
		t.Error("same passphrase produced different keys")
	}
	if *a == *c {
		t.Error("different passphrases produced the same key")
	}
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	key := DeriveKey("secret")
	v, err := NewVerifier(key)
	if err != nil {
		t.Fatal(err)
	}

	if !v.Verify(signedFrame(t, key)) {
		t.Error("valid signature rejected")
	}
}

func TestVerifyRejectsMismatch(t *testing.T) {
	v, err := NewVerifier(DeriveKey("secret"))
	if err != nil {
		t.Fatal(err)
	}

	// Signed with a different key.
	if v.Verify(signedFrame(t, DeriveKey("spoofed"))) {
		t.Error("mismatched signature accepted")
	}

	// Corrupted signature bytes.
	fr := signedFrame(t, DeriveKey("secret"))
	fr.Signature[0] ^= 0xff
	if v.Verify(fr) {
		t.Error("corrupted signature accepted")
	}
}

func TestVerifyPassesUnsignedTraffic(t *testing.T) {
	v, err := NewVerifier(DeriveKey("secret"))
	if err != nil {
		t.Fatal(err)
	}

	unsigned := &frame.V2Frame{
		SystemID:    1,
		ComponentID: 1,
		Message:     &message.MessageRaw{ID: 0},
	}
	if !v.Verify(unsigned) {
		t.Error("unsigned v2 frame rejected")
	}

	v1 := &frame.V1Frame{
		SystemID:    1,
		ComponentID: 1,
		Message:     &message.MessageRaw{ID: 0},
	}
	if !v.Verify(v1) {
		t.Error("v1 frame rejected")
	}
}

func TestVerifyWithoutKeyPassesEverything(t *testing.T) {
	v, err := NewVerifier(nil)
	if err != nil {
		t.Fatal(err)
	}

	if !v.Verify(signedFrame(t, DeriveKey("whatever"))) {
		t.Error("keyless verifier rejected a signed frame")
	}
}
