package attest_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/enclavekit/enclavekit/pkg/attest"
	"github.com/enclavekit/enclavekit/pkg/attest/attesttest"
)

func newSigner(t *testing.T) *attesttest.Signer {
	t.Helper()
	signer, err := attesttest.NewSigner(time.Now())
	require.NoError(t, err)
	return signer
}

func newVerifier(signer *attesttest.Signer) *attest.Verifier {
	return &attest.Verifier{RootDER: signer.RootDER()}
}

// rebuildEnvelope decodes a raw envelope, mutates its document, and
// reassembles a base64 envelope with the original (now stale) signature.
func rebuildEnvelope(t *testing.T, raw []byte, mutate func(*attest.Document)) string {
	t.Helper()
	var env attest.COSESign1
	require.NoError(t, cbor.Unmarshal(raw, &env))
	var doc attest.Document
	require.NoError(t, cbor.Unmarshal(env.Payload, &doc))

	mutate(&doc)

	payload, err := cbor.Marshal(doc)
	require.NoError(t, err)
	rebuilt, err := cbor.Marshal([]any{env.Protected, map[any]any{}, payload, env.Signature})
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(rebuilt)
}

func TestVerifyValidDocument(t *testing.T) {
	t.Parallel()
	signer := newSigner(t)

	pcrs := map[uint][]byte{0: make([]byte, 48), 1: {0xab, 0xcd}, 8: {0x01}}
	document, err := signer.Envelope(attesttest.DocumentSpec{
		ModuleID:  "i-0123456789abcdef0-enc0123456789abc",
		Digest:    "SHA384",
		Timestamp: 1756200000,
		PCRs:      pcrs,
		PublicKey: []byte("exchange-public-key-32-bytes!!!!"),
		UserData:  []byte("user data"),
		Nonce:     "nonce-1",
	})
	require.NoError(t, err)

	doc, err := newVerifier(signer).Verify(document, "nonce-1")
	require.NoError(t, err)
	require.Equal(t, "i-0123456789abcdef0-enc0123456789abc", doc.ModuleID)
	require.Equal(t, "SHA384", doc.Digest)
	require.Equal(t, uint64(1756200000), doc.Timestamp)
	require.Equal(t, pcrs, doc.PCRs)
	require.Equal(t, []byte("exchange-public-key-32-bytes!!!!"), doc.PublicKey)
	require.Equal(t, []byte("user data"), doc.UserData)
	require.Equal(t, []byte("nonce-1"), doc.Nonce)
}

func TestVerifyNonce(t *testing.T) {
	t.Parallel()
	signer := newSigner(t)
	verifier := newVerifier(signer)

	t.Run("missing nonce", func(t *testing.T) {
		t.Parallel()
		document, err := signer.Envelope(attesttest.DocumentSpec{})
		require.NoError(t, err)
		_, err = verifier.Verify(document, "nonce-1")
		require.ErrorIs(t, err, attest.ErrNonceMissing)
	})

	t.Run("mismatched nonce", func(t *testing.T) {
		t.Parallel()
		document, err := signer.Envelope(attesttest.DocumentSpec{Nonce: "nonce-2"})
		require.NoError(t, err)
		_, err = verifier.Verify(document, "nonce-1")
		require.ErrorIs(t, err, attest.ErrNonceMismatch)
	})

	t.Run("single character difference", func(t *testing.T) {
		t.Parallel()
		document, err := signer.Envelope(attesttest.DocumentSpec{Nonce: "nonce-1 "})
		require.NoError(t, err)
		_, err = verifier.Verify(document, "nonce-1")
		require.ErrorIs(t, err, attest.ErrNonceMismatch)
	})

	t.Run("nonce enforced in insecure mode", func(t *testing.T) {
		t.Parallel()
		document, err := signer.Envelope(attesttest.DocumentSpec{Nonce: "nonce-2"})
		require.NoError(t, err)
		insecure := &attest.Verifier{InsecureSkipVerification: true}
		_, err = insecure.Verify(document, "nonce-1")
		require.ErrorIs(t, err, attest.ErrNonceMismatch)
	})
}

func TestVerifySignatureTampering(t *testing.T) {
	t.Parallel()
	signer := newSigner(t)
	verifier := newVerifier(signer)

	raw, err := signer.SignedEnvelope(attesttest.DocumentSpec{Nonce: "nonce-1"})
	require.NoError(t, err)

	var env attest.COSESign1
	require.NoError(t, cbor.Unmarshal(raw, &env))

	for _, index := range []int{0, len(env.Signature) / 2, len(env.Signature) - 1} {
		signature := make([]byte, len(env.Signature))
		copy(signature, env.Signature)
		signature[index] ^= 0x01

		tampered, err := cbor.Marshal([]any{env.Protected, map[any]any{}, env.Payload, signature})
		require.NoError(t, err)

		_, err = verifier.Verify(base64.StdEncoding.EncodeToString(tampered), "nonce-1")
		require.ErrorIs(t, err, attest.ErrSignatureInvalid, "flipped signature byte %d", index)
	}
}

func TestVerifyCertificateChain(t *testing.T) {
	t.Parallel()

	t.Run("root not pinned", func(t *testing.T) {
		t.Parallel()
		signer := newSigner(t)
		other := newSigner(t)
		document, err := signer.Envelope(attesttest.DocumentSpec{Nonce: "nonce-1"})
		require.NoError(t, err)
		_, err = newVerifier(other).Verify(document, "nonce-1")
		require.ErrorIs(t, err, attest.ErrChainInvalid)
	})

	t.Run("expired chain", func(t *testing.T) {
		t.Parallel()
		signer := newSigner(t)
		document, err := signer.Envelope(attesttest.DocumentSpec{Nonce: "nonce-1"})
		require.NoError(t, err)
		verifier := &attest.Verifier{
			RootDER:     signer.RootDER(),
			CurrentTime: func() time.Time { return time.Now().Add(48 * time.Hour) },
		}
		_, err = verifier.Verify(document, "nonce-1")
		require.ErrorIs(t, err, attest.ErrChainInvalid)
	})

	t.Run("broken issuer linkage", func(t *testing.T) {
		t.Parallel()
		signer := newSigner(t)
		other := newSigner(t)

		// Splice the intermediate from an unrelated chain: its subject no
		// longer matches the leaf's issuer, and the linkage check must
		// reject it whether or not any signature happens to verify.
		otherRaw, err := other.SignedEnvelope(attesttest.DocumentSpec{Nonce: "nonce-1"})
		require.NoError(t, err)
		var otherEnv attest.COSESign1
		require.NoError(t, cbor.Unmarshal(otherRaw, &otherEnv))
		var otherDoc attest.Document
		require.NoError(t, cbor.Unmarshal(otherEnv.Payload, &otherDoc))

		raw, err := signer.SignedEnvelope(attesttest.DocumentSpec{Nonce: "nonce-1"})
		require.NoError(t, err)
		document := rebuildEnvelope(t, raw, func(doc *attest.Document) {
			doc.CABundle[1] = otherDoc.CABundle[1]
		})

		_, err = newVerifier(signer).Verify(document, "nonce-1")
		require.ErrorIs(t, err, attest.ErrChainInvalid)
	})

	t.Run("empty bundle", func(t *testing.T) {
		t.Parallel()
		signer := newSigner(t)
		raw, err := signer.SignedEnvelope(attesttest.DocumentSpec{Nonce: "nonce-1"})
		require.NoError(t, err)
		document := rebuildEnvelope(t, raw, func(doc *attest.Document) {
			doc.CABundle = nil
		})
		_, err = newVerifier(signer).Verify(document, "nonce-1")
		require.Error(t, err)
	})
}

func TestVerifyPCRs(t *testing.T) {
	t.Parallel()
	signer := newSigner(t)
	pcrs := map[uint][]byte{0: {0x01, 0x02}, 2: {0x03, 0x04}}

	document, err := signer.Envelope(attesttest.DocumentSpec{Nonce: "nonce-1", PCRs: pcrs})
	require.NoError(t, err)

	t.Run("matching pins", func(t *testing.T) {
		t.Parallel()
		verifier := newVerifier(signer)
		verifier.ExpectedPCRs = map[uint][]byte{0: {0x01, 0x02}}
		_, err := verifier.Verify(document, "nonce-1")
		require.NoError(t, err)
	})

	t.Run("missing register", func(t *testing.T) {
		t.Parallel()
		verifier := newVerifier(signer)
		verifier.ExpectedPCRs = map[uint][]byte{4: {0x01}}
		_, err := verifier.Verify(document, "nonce-1")
		require.ErrorIs(t, err, attest.ErrPCRMissing)
	})

	t.Run("mismatched register", func(t *testing.T) {
		t.Parallel()
		verifier := newVerifier(signer)
		verifier.ExpectedPCRs = map[uint][]byte{0: {0xff, 0xff}}
		_, err := verifier.Verify(document, "nonce-1")
		require.ErrorIs(t, err, attest.ErrPCRMismatch)
	})
}

func TestInsecureSkipVerification(t *testing.T) {
	t.Parallel()
	signer := newSigner(t)

	// The chain is rooted at a chain the verifier does not pin; only the
	// explicit insecure toggle lets the document through.
	document, err := signer.Envelope(attesttest.DocumentSpec{Nonce: "nonce-1"})
	require.NoError(t, err)

	_, err = (&attest.Verifier{}).Verify(document, "nonce-1")
	require.ErrorIs(t, err, attest.ErrChainInvalid)

	doc, err := (&attest.Verifier{InsecureSkipVerification: true}).Verify(document, "nonce-1")
	require.NoError(t, err)
	require.Equal(t, []byte("nonce-1"), doc.Nonce)
}
