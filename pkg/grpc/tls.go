package grpc

import (
	"crypto/tls"

	"google.golang.org/grpc/credentials"

	pkgerrors "github.com/socialgouv/companion-launcher/pkg/errors"
)

// loadTLSCredentials builds server credentials from a PEM certificate and key
func loadTLSCredentials(certFile, keyFile string) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, pkgerrors.WrapWithField(
			pkgerrors.WrapWithCode(err, pkgerrors.ErrorCodeInvalidInput, "failed to load certificate and key"),
			"cert_file", certFile, "tls")
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}), nil
}
