// Package attesttest forges attestation envelopes over a synthetic
// certificate chain. It backs the package tests and the local development
// enclave simulator; nothing here is safe for production use.
package attesttest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha512"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/enclavekit/enclavekit/pkg/attest"
)

// coordSize is the P-384 coordinate size in bytes.
const coordSize = 48

// Signer holds a synthetic root -> intermediate -> leaf P-384 chain and
// signs attestation envelopes with the leaf key.
type Signer struct {
	rootDER         []byte
	intermediateDER []byte
	leafDER         []byte
	leafKey         *ecdsa.PrivateKey
	now             time.Time
}

// DocumentSpec describes the attestation document to forge. Zero fields get
// sensible defaults; Nonce is the only field callers always set.
type DocumentSpec struct {
	ModuleID  string
	Digest    string
	Timestamp uint64
	PCRs      map[uint][]byte
	PublicKey []byte
	UserData  []byte
	Nonce     string
}

// NewSigner generates a fresh synthetic chain whose validity window contains
// now.
func NewSigner(now time.Time) (*Signer, error) {
	rootKey, rootDER, err := newCertificate(certSpec{
		serial:     1,
		commonName: "synthetic.attestation.root",
		isCA:       true,
		now:        now,
	}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create root: %w", err)
	}
	rootCert, err := x509.ParseCertificate(rootDER)
	if err != nil {
		return nil, err
	}

	intKey, intDER, err := newCertificate(certSpec{
		serial:     2,
		commonName: "synthetic.attestation.intermediate",
		isCA:       true,
		now:        now,
	}, rootCert, rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create intermediate: %w", err)
	}
	intCert, err := x509.ParseCertificate(intDER)
	if err != nil {
		return nil, err
	}

	leafKey, leafDER, err := newCertificate(certSpec{
		serial:     3,
		commonName: "synthetic.attestation.module",
		isCA:       false,
		now:        now,
	}, intCert, intKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create leaf: %w", err)
	}

	return &Signer{
		rootDER:         rootDER,
		intermediateDER: intDER,
		leafDER:         leafDER,
		leafKey:         leafKey,
		now:             now,
	}, nil
}

// RootDER returns the synthetic root certificate to pin in a Verifier.
func (s *Signer) RootDER() []byte {
	out := make([]byte, len(s.rootDER))
	copy(out, s.rootDER)
	return out
}

// Envelope forges a base64-encoded signed COSE_Sign1 envelope for spec.
func (s *Signer) Envelope(spec DocumentSpec) (string, error) {
	raw, err := s.SignedEnvelope(spec)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// SignedEnvelope forges a signed COSE_Sign1 envelope for spec in raw CBOR
// form, for tests that want to tamper with the bytes before re-encoding.
func (s *Signer) SignedEnvelope(spec DocumentSpec) ([]byte, error) {
	doc := s.document(spec)
	payload, err := cbor.Marshal(doc)
	if err != nil {
		return nil, err
	}

	// Protected header: {1: -35} (alg: ES384).
	protected, err := cbor.Marshal(map[int]int{1: -35})
	if err != nil {
		return nil, err
	}

	signature, err := s.sign(protected, payload)
	if err != nil {
		return nil, err
	}

	return cbor.Marshal([]any{
		protected,
		map[any]any{},
		payload,
		signature,
	})
}

func (s *Signer) document(spec DocumentSpec) attest.Document {
	doc := attest.Document{
		ModuleID:    spec.ModuleID,
		Digest:      spec.Digest,
		Timestamp:   spec.Timestamp,
		PCRs:        spec.PCRs,
		Certificate: s.leafDER,
		CABundle:    [][]byte{s.rootDER, s.intermediateDER},
		PublicKey:   spec.PublicKey,
		UserData:    spec.UserData,
	}
	if doc.ModuleID == "" {
		doc.ModuleID = "i-0000synthetic-enc0000000000000"
	}
	if doc.Digest == "" {
		doc.Digest = "SHA384"
	}
	if doc.Timestamp == 0 {
		doc.Timestamp = uint64(s.now.Unix())
	}
	if doc.PCRs == nil {
		doc.PCRs = map[uint][]byte{0: make([]byte, 48)}
	}
	if spec.Nonce != "" {
		doc.Nonce = []byte(spec.Nonce)
	}
	return doc
}

// sign produces a fixed-length (r || s) ECDSA P-384 signature over the COSE
// Sig_structure for the given protected header and payload.
func (s *Signer) sign(protected, payload []byte) ([]byte, error) {
	signed, err := cbor.Marshal([]any{"Signature1", protected, []byte{}, payload})
	if err != nil {
		return nil, err
	}
	digest := sha512.Sum384(signed)

	r, sv, err := ecdsa.Sign(rand.Reader, s.leafKey, digest[:])
	if err != nil {
		return nil, err
	}

	signature := make([]byte, 2*coordSize)
	r.FillBytes(signature[:coordSize])
	sv.FillBytes(signature[coordSize:])
	return signature, nil
}

type certSpec struct {
	serial     int64
	commonName string
	isCA       bool
	now        time.Time
}

// newCertificate creates a P-384 certificate signed by parent, or
// self-signed when parent is nil.
func newCertificate(spec certSpec, parent *x509.Certificate, parentKey *ecdsa.PrivateKey) (*ecdsa.PrivateKey, []byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(spec.serial),
		Subject:               pkix.Name{CommonName: spec.commonName, Organization: []string{"enclavekit synthetic"}},
		NotBefore:             spec.now.Add(-time.Hour),
		NotAfter:              spec.now.Add(24 * time.Hour),
		SignatureAlgorithm:    x509.ECDSAWithSHA384,
		BasicConstraintsValid: true,
		IsCA:                  spec.isCA,
	}
	if spec.isCA {
		template.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature
	} else {
		template.KeyUsage = x509.KeyUsageDigitalSignature
	}

	signerCert := template
	signerKey := key
	if parent != nil {
		signerCert = parent
		signerKey = parentKey
	}

	der, err := x509.CreateCertificate(rand.Reader, template, signerCert, &key.PublicKey, signerKey)
	if err != nil {
		return nil, nil, err
	}
	return key, der, nil
}
