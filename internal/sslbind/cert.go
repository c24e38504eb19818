package sslbind

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"
)

// CertDetails extracts expiry and issuer from a PEM certificate file. For
// chain files the leaf comes first, so the first CERTIFICATE block wins.
func CertDetails(path string) (time.Time, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, "", err
	}

	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return time.Time{}, "", fmt.Errorf("no certificate block in %s", path)
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return time.Time{}, "", err
		}
		return cert.NotAfter, cert.Issuer.CommonName, nil
	}
}
