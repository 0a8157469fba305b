// Package instancetest provides fixtures for tests of code that handles instances.
package instancetest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

// KeyFormat selects the PEM encoding of a generated private key.
type KeyFormat int

const (
	SEC1 KeyFormat = iota
	PKCS8
	PKCS1
)

// Certificate generates a self-signed certificate and returns it with its key, PEM encoded.
func Certificate(t testing.TB, format KeyFormat) (certPEM, keyPEM string) {
	t.Helper()

	var (
		signer any
		public any
		keyDER []byte
		keyTyp string
		err    error
	)

	switch format {
	case PKCS1:
		key, genErr := rsa.GenerateKey(rand.Reader, 2048)
		if genErr != nil {
			t.Fatalf("failed to generate RSA key: %v", genErr)
		}
		signer, public = key, &key.PublicKey
		keyDER, keyTyp = x509.MarshalPKCS1PrivateKey(key), "RSA PRIVATE KEY"
	default:
		key, genErr := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if genErr != nil {
			t.Fatalf("failed to generate EC key: %v", genErr)
		}
		signer, public = key, &key.PublicKey
		if format == PKCS8 {
			keyDER, err = x509.MarshalPKCS8PrivateKey(key)
			keyTyp = "PRIVATE KEY"
		} else {
			keyDER, err = x509.MarshalECPrivateKey(key)
			keyTyp = "EC PRIVATE KEY"
		}
		if err != nil {
			t.Fatalf("failed to marshal key: %v", err)
		}
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "mayo.test"},
		DNSNames:     []string{"mayo.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, public, signer)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}

	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: keyTyp, Bytes: keyDER}))
	return certPEM, keyPEM
}
