package certutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// CertFileName and KeyFileName are the fixed names the lane listener
// expects under a star's configured certificate directory.
const (
	CertFileName = "cert.der"
	KeyFileName  = "key.der"
)

// GenerateSelfSigned creates a self-signed ECDSA certificate valid for
// the given subject alternative names (hostnames or IP literals) and
// writes the DER-encoded cert and PKCS#8 key to dir, overwriting any
// existing files.
func GenerateSelfSigned(dir string, sans []string, validFor time.Duration) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("certutil: generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("certutil: generate serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "starlane-star"},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(validFor),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		IsCA:         true,
		BasicConstraintsValid: true,
	}
	for _, san := range sans {
		if ip := net.ParseIP(san); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, san)
		}
	}

	derCert, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("certutil: create certificate: %w", err)
	}
	derKey, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("certutil: marshal key: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("certutil: create dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, CertFileName), derCert, 0o644); err != nil {
		return fmt.Errorf("certutil: write cert: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, KeyFileName), derKey, 0o600); err != nil {
		return fmt.Errorf("certutil: write key: %w", err)
	}
	return nil
}

// LoadTLSCertificate loads the DER cert/key pair written by
// GenerateSelfSigned into a tls.Certificate suitable for
// tls.Config.Certificates.
func LoadTLSCertificate(dir string) (tls.Certificate, error) {
	derCert, err := os.ReadFile(filepath.Join(dir, CertFileName))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("certutil: read cert: %w", err)
	}
	derKey, err := os.ReadFile(filepath.Join(dir, KeyFileName))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("certutil: read key: %w", err)
	}
	key, err := x509.ParsePKCS8PrivateKey(derKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("certutil: parse key: %w", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{derCert},
		PrivateKey:  key,
	}, nil
}

// TrustPool builds a cert pool containing the cert written by
// GenerateSelfSigned, for use as a connector's root trust store since
// the lane design accepts self-signed server certificates.
func TrustPool(dir string) (*x509.CertPool, error) {
	derCert, err := os.ReadFile(filepath.Join(dir, CertFileName))
	if err != nil {
		return nil, fmt.Errorf("certutil: read cert: %w", err)
	}
	cert, err := x509.ParseCertificate(derCert)
	if err != nil {
		return nil, fmt.Errorf("certutil: parse cert: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(cert)
	return pool, nil
}
