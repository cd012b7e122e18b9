package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/basketlog/auth-service/internal/token"
)

// keyBlob is the persisted layout of the key material: current and previous
// pairs for both classes as PEM strings. The previous public keys are empty
// until the first rotation.
type keyBlob struct {
	AccessPrivateKey         string `json:"access_private_key"`
	AccessPublicKey          string `json:"access_public_key"`
	PreviousAccessPublicKey  string `json:"previous_access_public_key,omitempty"`
	RefreshPrivateKey        string `json:"refresh_private_key"`
	RefreshPublicKey         string `json:"refresh_public_key"`
	PreviousRefreshPublicKey string `json:"previous_refresh_public_key,omitempty"`
}

// readKeyFile loads the blob from disk. A missing file is not an error and
// yields a nil blob.
func readKeyFile(path string) (*keyBlob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading key file: %w", err)
	}

	blob := &keyBlob{}
	if err := json.Unmarshal(data, blob); err != nil {
		return nil, fmt.Errorf("error parsing key file: %w", err)
	}
	return blob, nil
}

func (b *keyBlob) toClasses() (map[token.Class]*pair, error) {
	access, err := b.toPair(b.AccessPrivateKey, b.PreviousAccessPublicKey)
	if err != nil {
		return nil, fmt.Errorf("access keys: %w", err)
	}
	refresh, err := b.toPair(b.RefreshPrivateKey, b.PreviousRefreshPublicKey)
	if err != nil {
		return nil, fmt.Errorf("refresh keys: %w", err)
	}
	return map[token.Class]*pair{
		token.ClassAccess:  access,
		token.ClassRefresh: refresh,
	}, nil
}

func (b *keyBlob) toPair(privatePEM, previousPEM string) (*pair, error) {
	private, err := decodePrivateKey(privatePEM)
	if err != nil {
		return nil, err
	}
	p := &pair{private: private}
	if previousPEM != "" {
		previous, err := decodePublicKey(previousPEM)
		if err != nil {
			return nil, err
		}
		p.previous = previous
	}
	return p, nil
}

// persist writes the key material to path atomically: the blob goes to a
// temporary file in the same directory first and is then renamed over the
// target.
func persist(path string, classes map[token.Class]*pair) error {
	blob, err := toBlob(classes)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling key file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".keys-*")
	if err != nil {
		return fmt.Errorf("error creating temp key file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("error writing temp key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error closing temp key file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error replacing key file: %w", err)
	}
	return nil
}

func toBlob(classes map[token.Class]*pair) (*keyBlob, error) {
	blob := &keyBlob{}

	access := classes[token.ClassAccess]
	refresh := classes[token.ClassRefresh]

	var err error
	if blob.AccessPrivateKey, err = encodePrivateKey(access.private); err != nil {
		return nil, err
	}
	if blob.AccessPublicKey, err = encodePublicKey(&access.private.PublicKey); err != nil {
		return nil, err
	}
	if access.previous != nil {
		if blob.PreviousAccessPublicKey, err = encodePublicKey(access.previous); err != nil {
			return nil, err
		}
	}

	if blob.RefreshPrivateKey, err = encodePrivateKey(refresh.private); err != nil {
		return nil, err
	}
	if blob.RefreshPublicKey, err = encodePublicKey(&refresh.private.PublicKey); err != nil {
		return nil, err
	}
	if refresh.previous != nil {
		if blob.PreviousRefreshPublicKey, err = encodePublicKey(refresh.previous); err != nil {
			return nil, err
		}
	}

	return blob, nil
}
