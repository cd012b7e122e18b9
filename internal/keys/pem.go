package keys

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

const (
	privateKeyBlockType = "EC PRIVATE KEY"
	publicKeyBlockType  = "PUBLIC KEY"
)

func encodePrivateKey(key *ecdsa.PrivateKey) (string, error) {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("error marshalling private key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: privateKeyBlockType, Bytes: der})), nil
}

func encodePublicKey(key *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("error marshalling public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: publicKeyBlockType, Bytes: der})), nil
}

func decodePrivateKey(data string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil || block.Type != privateKeyBlockType {
		return nil, fmt.Errorf("invalid private key PEM")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("error parsing private key: %w", err)
	}
	return key, nil
}

func decodePublicKey(data string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil || block.Type != publicKeyBlockType {
		return nil, fmt.Errorf("invalid public key PEM")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("error parsing public key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return key, nil
}
