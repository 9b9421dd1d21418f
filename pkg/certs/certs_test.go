package certs_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enclavekit/enclavekit/pkg/certs"
)

func TestRoot(t *testing.T) {
	t.Parallel()

	root, err := certs.Root()
	require.NoError(t, err)
	require.True(t, root.IsCA)
	require.Equal(t, root.RawSubject, root.RawIssuer, "pinned root must be self-signed")
	require.Equal(t, "aws.nitro-enclaves", root.Subject.CommonName)

	pub, ok := root.PublicKey.(*ecdsa.PublicKey)
	require.True(t, ok)
	require.Equal(t, elliptic.P384(), pub.Curve)
}

func TestRootDERReturnsACopy(t *testing.T) {
	t.Parallel()

	first := certs.RootDER()
	require.NotEmpty(t, first)

	first[0] ^= 0xff
	second := certs.RootDER()
	require.NotEqual(t, first[0], second[0], "callers must not share the embedded bytes")
}
