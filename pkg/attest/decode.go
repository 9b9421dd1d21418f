package attest

import (
	"encoding/base64"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Decode parses a base64-encoded COSE_Sign1 envelope and the attestation
// document it carries. It performs no cryptographic checks; the returned
// document is untrusted until it passes Verifier.Verify.
//
// Unknown payload keys are ignored for forward compatibility. A recognized
// key that is present with the wrong type is a decode error, as is any
// negative integer encoding.
func Decode(documentB64 string) (*Document, *COSESign1, error) {
	raw, err := base64.StdEncoding.DecodeString(documentB64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid base64: %v", ErrMalformedEnvelope, err)
	}

	var envelope COSESign1
	if err := cbor.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(envelope.Payload) == 0 {
		return nil, nil, fmt.Errorf("%w: empty payload", ErrMalformedEnvelope)
	}

	var doc Document
	if err := cbor.Unmarshal(envelope.Payload, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	return &doc, &envelope, nil
}

// validateMandatoryFields rejects documents missing the fields every
// attestation must carry, before any cryptographic work happens.
func validateMandatoryFields(doc *Document) error {
	switch {
	case doc.ModuleID == "":
		return fmt.Errorf("%w: module_id", ErrMissingField)
	case doc.Digest == "":
		return fmt.Errorf("%w: digest", ErrMissingField)
	case doc.Timestamp == 0:
		return fmt.Errorf("%w: timestamp", ErrMissingField)
	case len(doc.PCRs) == 0:
		return fmt.Errorf("%w: pcrs", ErrMissingField)
	case len(doc.Certificate) == 0:
		return fmt.Errorf("%w: certificate", ErrMissingField)
	case len(doc.CABundle) == 0:
		return fmt.Errorf("%w: cabundle", ErrMissingField)
	}
	return nil
}
