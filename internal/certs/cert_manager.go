package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// RenewalWindow is how long before expiry a certificate is reported as due.
const RenewalWindow = 14 * 24 * time.Hour

// CertManager loads and checks the TLS key pair served by the HTTP server.
type CertManager struct {
	certFile string
	keyFile  string
	log      *zap.Logger
	now      func() time.Time
}

// NewCertManager creates a CertManager for the given PEM files.
func NewCertManager(certFile, keyFile string, log *zap.Logger) *CertManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &CertManager{certFile: certFile, keyFile: keyFile, log: log, now: time.Now}
}

// TLSConfig loads the key pair, rejects an expired leaf and warns when it is
// within RenewalWindow of expiry.
func (cm *CertManager) TLSConfig() (*tls.Config, error) {
	pair, err := tls.LoadX509KeyPair(cm.certFile, cm.keyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	leaf, err := cm.LoadCertificate()
	if err != nil {
		return nil, err
	}
	if cm.IsExpired(leaf) {
		return nil, fmt.Errorf("certificate %s expired at %s", cm.certFile, leaf.NotAfter.Format(time.RFC3339))
	}
	if cm.ExpiresWithin(leaf, RenewalWindow) {
		cm.log.Warn("certificate expires soon",
			zap.String("file", cm.certFile),
			zap.Time("not_after", leaf.NotAfter),
		)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// LoadCertificate parses the first certificate in the cert file.
func (cm *CertManager) LoadCertificate() (*x509.Certificate, error) {
	data, err := os.ReadFile(cm.certFile)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to parse certificate PEM")
	}

	return x509.ParseCertificate(block.Bytes)
}

// IsExpired checks if a certificate is expired.
func (cm *CertManager) IsExpired(cert *x509.Certificate) bool {
	return cert.NotAfter.Before(cm.now())
}

func (cm *CertManager) ExpiresWithin(cert *x509.Certificate, d time.Duration) bool {
	return cert.NotAfter.Before(cm.now().Add(d))
}
