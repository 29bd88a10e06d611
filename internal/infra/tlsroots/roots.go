package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNoCertsFound is returned when a PEM source holds no
	// certificates.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")
)

// Pool is the set of CAs trusted when verifying a Redis server
// certificate.
type Pool struct {
	certPool *x509.CertPool
}

// NewPool creates a pool seeded with the system roots. Systems
// without an accessible root store yield an empty pool.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// NewEmptyPool creates a pool with no trusted roots, for private CAs
// that must not chain to public ones.
func NewEmptyPool() *Pool {
	return &Pool{certPool: x509.NewCertPool()}
}

// AddCertFile adds every certificate found in a PEM file.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read %s: %w", path, err)
	}
	if err := p.AddCertPEM(data); err != nil {
		return fmt.Errorf("tlsroots: %s: %w", path, err)
	}
	return nil
}

// AddCertPEM adds every CERTIFICATE block in pemData.
func (p *Pool) AddCertPEM(pemData []byte) error {
	added := 0
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("parse certificate: %w", err)
		}
		p.certPool.AddCert(cert)
		added++
	}
	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// AddCertDir adds every .pem, .crt and .cer file under dir.
// Unparsable files are skipped.
func (p *Pool) AddCertDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("tlsroots: read dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pem", ".crt", ".cer":
			if err := p.AddCertFile(filepath.Join(dir, entry.Name())); err != nil {
				continue
			}
		}
	}
	return nil
}

// CertPool returns the underlying x509 pool.
func (p *Pool) CertPool() *x509.CertPool { return p.certPool }

// ClientTLS builds the client TLS configuration used for rediss://
// dials. serverName may be empty; the dialer fills it from the
// endpoint host.
func (p *Pool) ClientTLS(serverName string) *tls.Config {
	return &tls.Config{
		RootCAs:    p.certPool,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}
}
