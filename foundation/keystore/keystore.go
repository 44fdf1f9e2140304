// Package keystore reads a folder of ECDSA key files and maps each address
// to the name of the file it came from.
package keystore

import (
	"crypto/ecdsa"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// KeyExtension is the file extension of a stored key.
const KeyExtension = ".ecdsa"

// KeyStore maintains a map of addresses for name lookup.
type KeyStore struct {
	root     string
	accounts map[names.Address]string
}

// New constructs a key store with the keys found under the root folder.
func New(root string) (*KeyStore, error) {
	ks := KeyStore{
		root:     root,
		accounts: make(map[names.Address]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != KeyExtension {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}

		address := names.PublicKeyToAddress(privateKey.PublicKey)
		ks.accounts[address] = strings.TrimSuffix(filepath.Base(fileName), KeyExtension)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ks, nil
}

// Load reads the private key stored under the specified name.
func (ks *KeyStore) Load(name string) (*ecdsa.PrivateKey, error) {
	return crypto.LoadECDSA(filepath.Join(ks.root, strings.TrimSuffix(name, KeyExtension)+KeyExtension))
}

// Lookup returns the name for the specified address.
func (ks *KeyStore) Lookup(address names.Address) string {
	for a, name := range ks.accounts {
		if a.Equal(address) {
			return name
		}
	}

	return string(address)
}

// Copy returns a copy of the map of names and addresses.
func (ks *KeyStore) Copy() map[names.Address]string {
	cpy := make(map[names.Address]string, len(ks.accounts))
	for address, name := range ks.accounts {
		cpy[address] = name
	}
	return cpy
}
