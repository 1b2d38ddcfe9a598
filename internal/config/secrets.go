package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
)

// RSAPrivateKey decodes an RSA private key from YAML. The value may be the
// PEM text itself or base64 of it, which is easier to inline in an env var.
// An empty value leaves the key nil, meaning no credentials were supplied.
type RSAPrivateKey struct {
	*rsa.PrivateKey
}

func (k *RSAPrivateKey) UnmarshalYAML(unmarshal func(any) error) error {
	var encoded string
	if err := unmarshal(&encoded); err != nil {
		return err
	}

	if strings.TrimSpace(encoded) == "" {
		return nil
	}

	key, err := decodeRSAPrivateKey(encoded)
	if err != nil {
		return fmt.Errorf("couldn't decode RSA private key: %w", err)
	}

	k.PrivateKey = key
	return nil
}

func decodeRSAPrivateKey(encoded string) (*rsa.PrivateKey, error) {
	pemBytes := []byte(encoded)
	if !strings.Contains(encoded, "-----BEGIN") {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return nil, fmt.Errorf("couldn't base64 decode: %w", err)
		}
		pemBytes = decoded
	}

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		key, ok := keyAny.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("not an RSA private key")
		}
		return key, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse private key: %w", err)
	}

	return key, nil
}
