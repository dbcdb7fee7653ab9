package store

import (
	"fmt"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"
)

// Encode returns the canonical serialization of an object: YAML with map
// keys in sorted order. This is exactly what Apply writes to disk, so the
// fingerprint of a remote object equals the fingerprint of its stored file
// by construction.
func Encode(obj map[string]any) ([]byte, error) {
	data, err := yaml.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize object: %w", err)
	}
	return data, nil
}

// Fingerprint returns the content digest of an object's canonical
// serialization.
func Fingerprint(obj map[string]any) (digest.Digest, error) {
	data, err := Encode(obj)
	if err != nil {
		return "", err
	}
	return digest.FromBytes(data), nil
}

// FingerprintBytes returns the content digest of already-serialized bytes,
// used when snapshotting files off disk.
func FingerprintBytes(data []byte) digest.Digest {
	return digest.FromBytes(data)
}
