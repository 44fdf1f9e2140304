package names

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Address represents a ledger address in its hex-encoded form. Outputs are
// controlled by an address and commitments bind a name to one.
type Address string

// ToAddress converts a hex-encoded string to an address and validates the
// hex-encoded string is formatted correctly.
func ToAddress(hex string) (Address, error) {
	a := Address(hex)
	if !a.IsAddress() {
		return "", errors.New("invalid address format")
	}

	return Address(common.HexToAddress(hex).Hex()), nil
}

// PublicKeyToAddress converts the public key to an address value.
func PublicKeyToAddress(pk ecdsa.PublicKey) Address {
	return Address(crypto.PubkeyToAddress(pk).Hex())
}

// IsAddress verifies whether the underlying data represents a valid
// hex-encoded address.
func (a Address) IsAddress() bool {
	const addressLength = 20

	if has0xPrefix(a) {
		a = a[2:]
	}

	return len(a) == 2*addressLength && isHex(a)
}

// Bytes returns the 20 byte form of the address.
func (a Address) Bytes() []byte {
	return common.HexToAddress(string(a)).Bytes()
}

// Equal compares two addresses ignoring the checksum casing.
func (a Address) Equal(b Address) bool {
	return common.HexToAddress(string(a)) == common.HexToAddress(string(b))
}

// =============================================================================

// has0xPrefix validates the address starts with a 0x.
func has0xPrefix(a Address) bool {
	return len(a) >= 2 && a[0] == '0' && (a[1] == 'x' || a[1] == 'X')
}

// isHex validates whether each byte is valid hexadecimal string.
func isHex(a Address) bool {
	if len(a)%2 != 0 {
		return false
	}

	for _, c := range []byte(a) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
