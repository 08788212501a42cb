package client

import (
	"crypto/tls"
	"encoding/pem"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"

	apperrors "idsync.io/idsync/internal/pkg/errors"
)

// loadKeyPair loads a PEM certificate/key pair for mTLS.
func loadKeyPair(certFile, keyFile string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, apperrors.Wrap(err, apperrors.CodeAuthConfigInvalid,
			"load client certificate", apperrors.KindUsage)
	}
	return cert, nil
}

// loadP12Certificate extracts the certificate and private key from a
// PKCS12 archive and assembles an mTLS credential.
func loadP12Certificate(p12File, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(p12File)
	if err != nil {
		return tls.Certificate{}, apperrors.Wrap(err, apperrors.CodeAuthConfigInvalid,
			"read P12 file", apperrors.KindUsage)
	}

	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return tls.Certificate{}, apperrors.Wrap(err, apperrors.CodeAuthConfigInvalid,
			"decode P12 file", apperrors.KindUsage)
	}

	var certPEM, keyPEM []byte
	for _, block := range blocks {
		encoded := pem.EncodeToMemory(block)
		if block.Type == "CERTIFICATE" {
			certPEM = append(certPEM, encoded...)
		} else {
			keyPEM = append(keyPEM, encoded...)
		}
	}
	if len(certPEM) == 0 || len(keyPEM) == 0 {
		return tls.Certificate{}, apperrors.ErrAuthConfigInvalid(
			"P12 file does not contain a valid certificate and key")
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, apperrors.Wrap(err, apperrors.CodeAuthConfigInvalid,
			"assemble P12 key pair", apperrors.KindUsage)
	}
	return cert, nil
}

func newMTLSClient(cert tls.Certificate, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			},
		},
	}
}
