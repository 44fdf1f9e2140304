package keystore_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/keystore"
	"github.com/stretchr/testify/require"
)

func TestKeyStore(t *testing.T) {
	root := t.TempDir()

	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, crypto.SaveECDSA(filepath.Join(root, "miner1.ecdsa"), pk))

	ks, err := keystore.New(root)
	require.NoError(t, err)

	address := names.PublicKeyToAddress(pk.PublicKey)
	require.Equal(t, "miner1", ks.Lookup(address))
	require.Equal(t, "miner1", ks.Lookup(names.Address(strings.ToLower(string(address)))))
	require.Len(t, ks.Copy(), 1)

	loaded, err := ks.Load("miner1")
	require.NoError(t, err)
	require.True(t, loaded.Equal(pk))

	unknown := names.Address("0x0000000000000000000000000000000000000001")
	require.Equal(t, string(unknown), ks.Lookup(unknown))
}
