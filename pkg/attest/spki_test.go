package attest

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T, pub, priv any) *x509.Certificate {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "spki-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func TestECPointExtraction(t *testing.T) {
	t.Parallel()

	t.Run("p256 point is 65 bytes", func(t *testing.T) {
		t.Parallel()
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		cert := selfSignedCert(t, &key.PublicKey, key)

		point, err := ecPointFromCertificate(cert)
		require.NoError(t, err)
		require.Len(t, point, 65)
		require.Equal(t, byte(0x04), point[0])

		pub, err := publicKeyFromPoint(point)
		require.NoError(t, err)
		require.True(t, key.PublicKey.Equal(pub))
	})

	t.Run("p384 point is 97 bytes", func(t *testing.T) {
		t.Parallel()
		key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
		require.NoError(t, err)
		cert := selfSignedCert(t, &key.PublicKey, key)

		point, err := ecPointFromCertificate(cert)
		require.NoError(t, err)
		require.Len(t, point, 97)

		pub, err := publicKeyFromPoint(point)
		require.NoError(t, err)
		require.True(t, key.PublicKey.Equal(pub))
	})

	t.Run("non-ec key is rejected", func(t *testing.T) {
		t.Parallel()
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		cert := selfSignedCert(t, pub, priv)

		_, err = ecPointFromCertificate(cert)
		require.Error(t, err)
	})

	t.Run("point not on curve is rejected", func(t *testing.T) {
		t.Parallel()
		point := make([]byte, 65)
		point[0] = 0x04
		point[64] = 0x01
		_, err := publicKeyFromPoint(point)
		require.Error(t, err)
	})
}
