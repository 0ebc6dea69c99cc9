package cryptoutil

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// seedFile is the on-disk JSON shape of a persisted node seed.
type seedFile struct {
	Seed string `json:"seed"`
}

// LoadOrCreateSeedFile loads the ed25519 seed at path, generating and
// persisting a fresh one if the file doesn't exist yet. Grounded on the
// teacher's identity persistence (internal/peermanagement/identity.go's
// LoadIdentity/Save pair), generalized from its hex-private-key text file
// to a small JSON envelope around the 32-byte seed.
func LoadOrCreateSeedFile(path string) (KeyPair, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var f seedFile
		if jsonErr := json.Unmarshal(data, &f); jsonErr != nil {
			return KeyPair{}, fmt.Errorf("cryptoutil: parse seed file %s: %w", path, jsonErr)
		}
		seedBytes, hexErr := hex.DecodeString(f.Seed)
		if hexErr != nil || len(seedBytes) != SeedSize {
			return KeyPair{}, fmt.Errorf("cryptoutil: invalid seed in %s", path)
		}
		var seed [SeedSize]byte
		copy(seed[:], seedBytes)
		return KeyPairFromSeed(seed), nil
	}
	if !os.IsNotExist(err) {
		return KeyPair{}, fmt.Errorf("cryptoutil: read seed file %s: %w", path, err)
	}

	kp, err := GenerateKeyPair()
	if err != nil {
		return KeyPair{}, err
	}

	seed := kp.private.Seed()
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return KeyPair{}, fmt.Errorf("cryptoutil: create seed directory: %w", err)
		}
	}
	encoded, err := json.Marshal(seedFile{Seed: hex.EncodeToString(seed[:])})
	if err != nil {
		return KeyPair{}, err
	}
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return KeyPair{}, fmt.Errorf("cryptoutil: write seed file %s: %w", path, err)
	}
	return kp, nil
}
