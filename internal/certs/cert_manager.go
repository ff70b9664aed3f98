// Package certs serves the API's TLS certificate and picks up renewed
// certificate files without a restart.
package certs

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CertManager holds the current server certificate loaded from a PEM
// certificate and key file pair.
type CertManager struct {
	certFile string
	keyFile  string

	mu   sync.RWMutex
	cert *tls.Certificate
	leaf *x509.Certificate
}

// NewCertManager loads the key pair once and fails if it cannot be used.
func NewCertManager(certFile, keyFile string) (*CertManager, error) {
	if certFile == "" || keyFile == "" {
		return nil, errors.New("both certificate and key file are required")
	}
	cm := &CertManager{certFile: certFile, keyFile: keyFile}
	if err := cm.Reload(); err != nil {
		return nil, err
	}
	return cm, nil
}

// Reload re-reads the files. On error the previous certificate stays in
// use.
func (cm *CertManager) Reload() error {
	pair, err := tls.LoadX509KeyPair(cm.certFile, cm.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return fmt.Errorf("parse certificate: %w", err)
	}
	pair.Leaf = leaf

	cm.mu.Lock()
	cm.cert = &pair
	cm.leaf = leaf
	cm.mu.Unlock()
	return nil
}

// Certificate returns the parsed leaf of the current certificate.
func (cm *CertManager) Certificate() *x509.Certificate {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.leaf
}

// IsExpired reports whether the current certificate is no longer valid at
// now.
func (cm *CertManager) IsExpired(now time.Time) bool {
	return cm.Certificate().NotAfter.Before(now)
}

// ExpiresWithin reports whether the certificate expires before now+d.
func (cm *CertManager) ExpiresWithin(d time.Duration, now time.Time) bool {
	return cm.Certificate().NotAfter.Before(now.Add(d))
}

func (cm *CertManager) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.cert, nil
}

// TLSConfig returns a server config that always presents the most recently
// loaded certificate.
func (cm *CertManager) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: cm.getCertificate,
	}
}
