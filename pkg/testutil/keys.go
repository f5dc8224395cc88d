package testutil

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// KeyPair is a throwaway RSA key pair standing in for the service key.
type KeyPair struct {
	Private *rsa.PrivateKey
	// PublicPEM is the PKIX public key in PEM form, the shape partners receive as api_key.
	PublicPEM string
}

var (
	keyOnce sync.Once
	keyPair KeyPair
	keyErr  error
)

// ServiceKey returns a process-wide RSA key pair. Key generation is slow, so it
// is shared between tests.
func ServiceKey(t testing.TB) KeyPair {
	t.Helper()
	keyOnce.Do(func() {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			keyErr = err
			return
		}
		der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
		if err != nil {
			keyErr = err
			return
		}
		keyPair = KeyPair{
			Private:   priv,
			PublicPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
		}
	})
	require.NoError(t, keyErr, "failed to generate service key")
	return keyPair
}

// PublicBase64DER returns the public key as base64 encoded DER.
func (k KeyPair) PublicBase64DER(t testing.TB) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&k.Private.PublicKey)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(der)
}

// DecryptSecKeyHalf decrypts the encrypted half of a sec_key.
func (k KeyPair) DecryptSecKeyHalf(t testing.TB, encrypted string) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	require.NoError(t, err)
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, k.Private, raw)
	require.NoError(t, err)
	return string(plain)
}

// JPEG returns a small encoded JPEG image.
func JPEG(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, sample(), nil))
	return buf.Bytes()
}

// PNG returns a small encoded PNG image.
func PNG(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, sample()))
	return buf.Bytes()
}

func sample() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	return img
}
