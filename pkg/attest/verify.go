// Package attest verifies attestation documents produced by a
// hardware-isolated enclave. Verification decodes the COSE_Sign1 envelope,
// checks the caller's nonce, validates the bundled certificate chain against
// a pinned root, verifies the document signature, and optionally pins
// platform measurement registers. Any stage failing fails the whole
// verification; there is no partial trust.
package attest

import (
	"bytes"
	"fmt"
	"time"

	"github.com/enclavekit/enclavekit/pkg/certs"
)

// Verifier verifies attestation documents. The zero value verifies against
// the pinned root certificate with the current wall clock and no measurement
// pins.
type Verifier struct {
	// ExpectedPCRs pins measurement register values. When non-empty, every
	// listed index must be present in the document with a byte-exact value.
	ExpectedPCRs map[uint][]byte

	// RootDER overrides the pinned root certificate. Only tests and local
	// development tooling set this.
	RootDER []byte

	// CurrentTime overrides the clock used for certificate validity windows.
	CurrentTime func() time.Time

	// InsecureSkipVerification skips chain and signature verification. It is
	// a client-side development toggle only: it is never derived from
	// anything inside the attested data, and it never skips the nonce check.
	InsecureSkipVerification bool
}

// Verify decodes and verifies a base64-encoded attestation envelope against
// the nonce the caller generated for this handshake. It returns the verified
// document, or the first error encountered in
// decode -> nonce -> chain -> signature -> measurement order.
func (v *Verifier) Verify(documentB64, nonce string) (*Document, error) {
	doc, envelope, err := Decode(documentB64)
	if err != nil {
		return nil, err
	}
	if err := validateMandatoryFields(doc); err != nil {
		return nil, err
	}

	// The nonce check holds even in insecure mode: a replayed document is
	// rejected regardless of how the client is configured.
	if len(doc.Nonce) == 0 {
		return nil, ErrNonceMissing
	}
	if string(doc.Nonce) != nonce {
		return nil, ErrNonceMismatch
	}

	if !v.InsecureSkipVerification {
		rootDER := v.RootDER
		if rootDER == nil {
			rootDER = certs.RootDER()
		}
		now := time.Now()
		if v.CurrentTime != nil {
			now = v.CurrentTime()
		}

		leaf, err := validateCertificateChain(doc, rootDER, now)
		if err != nil {
			return nil, err
		}
		if err := verifyDocumentSignature(envelope, leaf); err != nil {
			return nil, err
		}
	}

	if err := v.verifyPCRs(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// verifyPCRs requires every expected measurement register to be present with
// a byte-exact value. A missing register and a mismatched register are
// distinct errors for diagnostics; both are fatal.
func (v *Verifier) verifyPCRs(doc *Document) error {
	for index, expected := range v.ExpectedPCRs {
		actual, ok := doc.PCRs[index]
		if !ok {
			return fmt.Errorf("%w: PCR%d", ErrPCRMissing, index)
		}
		if !bytes.Equal(actual, expected) {
			return fmt.Errorf("%w: PCR%d", ErrPCRMismatch, index)
		}
	}
	return nil
}
