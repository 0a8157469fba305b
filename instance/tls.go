package instance

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// TLSMaterial is a PEM certificate and its private key. Both are always present together.
type TLSMaterial struct {
	Certificate string
	Key         string
}

// NewTLSMaterial validates and pairs a certificate with its key.
func NewTLSMaterial(certificate, key string) (*TLSMaterial, error) {
	m := &TLSMaterial{Certificate: certificate, Key: key}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that the certificate is a PEM X.509 certificate and the key a PEM PKCS#1,
// PKCS#8 or SEC1 private key.
func (m *TLSMaterial) Validate() error {
	if m.Certificate == "" || m.Key == "" {
		return fmt.Errorf("%w: TLS certificate and key must be provided together", ErrInvalidParameters)
	}

	block, _ := pem.Decode([]byte(m.Certificate))
	if block == nil {
		return fmt.Errorf("%w: certificate is not a PEM file", ErrInvalidParameters)
	}
	if block.Type != "CERTIFICATE" {
		return fmt.Errorf("%w: certificate PEM holds %q, not a certificate", ErrInvalidParameters, block.Type)
	}
	if _, err := x509.ParseCertificate(block.Bytes); err != nil {
		return fmt.Errorf("%w: failed to parse certificate: %w", ErrInvalidParameters, err)
	}

	block, _ = pem.Decode([]byte(m.Key))
	if block == nil {
		return fmt.Errorf("%w: key is not a PEM file", ErrInvalidParameters)
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		_, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return fmt.Errorf("%w: failed to parse PKCS#1 key: %w", ErrInvalidParameters, err)
		}
	case "PRIVATE KEY":
		_, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return fmt.Errorf("%w: failed to parse PKCS#8 key: %w", ErrInvalidParameters, err)
		}
	case "EC PRIVATE KEY":
		_, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return fmt.Errorf("%w: failed to parse SEC1 key: %w", ErrInvalidParameters, err)
		}
	default:
		return fmt.Errorf("%w: key PEM holds %q, not a private key", ErrInvalidParameters, block.Type)
	}
	return nil
}
