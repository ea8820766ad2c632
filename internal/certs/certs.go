// Package certs provides helper functions to verify certificates and CA chains.
package certs

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/sunbeam-ops/cloudcheck/internal/core/logger"
	"go.uber.org/zap"
)

// ErrNoCertificates is returned when a PEM bundle holds no certificate blocks.
var ErrNoCertificates = errors.New("no certificate found in chain file")

// CertificateIsValid reports whether the input parses as a PEM certificate.
func CertificateIsValid(certificate []byte) bool {
	_, err := parsePEMCertificate(certificate)
	return err == nil
}

// ParseCAChain splits a concatenated PEM bundle into individual certificate
// blocks, in order. Non-certificate PEM blocks are ignored. Returns
// ErrNoCertificates when the bundle holds none.
func ParseCAChain(caChainPEM string) ([]string, error) {
	var chain []string
	rest := []byte(caChainPEM)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		chain = append(chain, string(pem.EncodeToMemory(block)))
	}
	if len(chain) == 0 {
		return nil, ErrNoCertificates
	}
	return chain, nil
}

// CAChainIsValid reports whether the chain is a usable CA chain: at least
// two certificates, ordered root first, each certificate directly issued
// and signed by the one before it.
func CAChainIsValid(caChain []string) bool {
	log := logger.Named("certs")
	if len(caChain) < 2 {
		log.Warn("Invalid CA chain: it must contain at least 2 certificates")
		return false
	}
	for i := 0; i < len(caChain)-1; i++ {
		issuer, err := parsePEMCertificate([]byte(caChain[i]))
		if err != nil {
			log.Warn("Invalid CA chain", zap.Error(err))
			return false
		}
		cert, err := parsePEMCertificate([]byte(caChain[i+1]))
		if err != nil {
			log.Warn("Invalid CA chain", zap.Error(err))
			return false
		}
		if err := verifyDirectlyIssuedBy(cert, issuer); err != nil {
			log.Warn("Invalid CA chain", zap.Error(err))
			return false
		}
	}
	return true
}

func parsePEMCertificate(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("not a PEM certificate")
	}
	return x509.ParseCertificate(block.Bytes)
}

// verifyDirectlyIssuedBy checks the issuer name matches the issuer's
// subject and that the certificate is signed by the issuer's key. No other
// chain properties (expiry, extensions) are inspected.
func verifyDirectlyIssuedBy(cert, issuer *x509.Certificate) error {
	if cert.Issuer.String() != issuer.Subject.String() {
		return fmt.Errorf("issuer %q does not match subject %q", cert.Issuer, issuer.Subject)
	}
	return cert.CheckSignatureFrom(issuer)
}
