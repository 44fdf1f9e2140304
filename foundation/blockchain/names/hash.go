package names

import (
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashLength is the number of bytes in a commitment hash.
const HashLength = 20

// Hash is the HASH160 digest that hides a name until it is revealed.
type Hash [HashLength]byte

// CommitHash produces the commitment hash for a name claimed by an address.
// The digest covers salt || name || claimant so the same name committed by
// two claimants never collides.
func CommitHash(salt []byte, name string, claimant Address) Hash {
	data := make([]byte, 0, len(salt)+len(name)+20)
	data = append(data, salt...)
	data = append(data, name...)
	data = append(data, claimant.Bytes()...)

	var h Hash
	copy(h[:], btcutil.Hash160(data))

	return h
}

// ToHash converts a hex-encoded string into a commitment hash.
func ToHash(s string) (Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Hash{}, Errorf(KindLength, "hash decode: %s", err)
	}

	if len(b) != HashLength {
		return Hash{}, Errorf(KindLength, "hash is %d bytes, exp %d", len(b), HashLength)
	}

	var h Hash
	copy(h[:], b)

	return h, nil
}

// IsZero reports whether the hash was never set.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String implements the fmt.Stringer interface.
func (h Hash) String() string {
	return hexutil.Encode(h[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = Hash{}
		return nil
	}

	v, err := ToHash(string(text))
	if err != nil {
		return fmt.Errorf("unmarshal hash: %w", err)
	}
	*h = v

	return nil
}
