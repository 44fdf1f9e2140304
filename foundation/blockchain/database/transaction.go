package database

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/signature"
)

// =============================================================================

// Tx is a name operation as submitted by a wallet. A commit carries only the
// hash so the name stays private until the reveal.
type Tx struct {
	ChainID    uint16         `json:"chain_id"`         // Ethereum: The chain id that is listed in the genesis file.
	Nonce      uint64         `json:"nonce"`            // Ethereum: Unique id for the transaction supplied by the user.
	Kind       names.Kind     `json:"kind"`             // The name operation being performed.
	CommitHash names.Hash     `json:"hash"`             // Commit: the commitment hash.
	Name       string         `json:"name,omitempty"`   // Reveal and mutate: the name.
	Salt       hexutil.Bytes  `json:"salt,omitempty"`   // Reveal: the salt used for the commitment.
	Value      string         `json:"value,omitempty"`  // Reveal and mutate: the value bound to the name.
	Target     names.Address  `json:"target,omitempty"` // Address receiving the new output. Defaults to the signer.
	Spends     names.Outpoint `json:"spends"`           // Bitcoin: The output consumed by this operation.
}

// NewCommitTx constructs a commit for a hash computed by the wallet.
func NewCommitTx(chainID uint16, nonce uint64, hash names.Hash, target names.Address) (Tx, error) {
	tx := Tx{
		ChainID:    chainID,
		Nonce:      nonce,
		Kind:       names.KindCommit,
		CommitHash: hash,
		Target:     target,
	}

	return tx, tx.Validate()
}

// NewRevealTx constructs the reveal of a previously committed name.
func NewRevealTx(chainID uint16, nonce uint64, name string, salt []byte, value string, commitOutput names.Outpoint, target names.Address) (Tx, error) {
	tx := Tx{
		ChainID: chainID,
		Nonce:   nonce,
		Kind:    names.KindReveal,
		Name:    name,
		Salt:    salt,
		Value:   value,
		Target:  target,
		Spends:  commitOutput,
	}

	return tx, tx.Validate()
}

// NewMutateTx constructs an update of a name the signer owns.
func NewMutateTx(chainID uint16, nonce uint64, name string, value string, ownerOutput names.Outpoint, target names.Address) (Tx, error) {
	tx := Tx{
		ChainID: chainID,
		Nonce:   nonce,
		Kind:    names.KindMutate,
		Name:    name,
		Value:   value,
		Target:  target,
		Spends:  ownerOutput,
	}

	return tx, tx.Validate()
}

// Validate checks the shape of the transaction. The registry rules are
// checked later against chain state.
func (tx Tx) Validate() error {
	if _, err := names.ParseKind(string(tx.Kind)); err != nil {
		return err
	}

	if tx.Target != "" && !tx.Target.IsAddress() {
		return fmt.Errorf("target %q is not properly formatted", tx.Target)
	}

	switch tx.Kind {
	case names.KindCommit:
		if tx.Name != "" || len(tx.Salt) > 0 || tx.Value != "" {
			return errors.New("commit must not disclose the name, salt or value")
		}
		if tx.CommitHash.IsZero() {
			return names.Errorf(names.KindLength, "commitment hash must be %d bytes", names.HashLength)
		}
		if !tx.Spends.IsZero() {
			return errors.New("commit must not spend an output")
		}

	default:
		if tx.Spends.IsZero() {
			return names.Errorf(names.KindWrongOwner, "%s must spend an output", tx.Kind)
		}
	}

	return nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	if err := tx.Validate(); err != nil {
		return SignedTx{}, err
	}

	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	V *big.Int `json:"v"` // Ethereum: Recovery identifier, either 31 or 32.
	R *big.Int `json:"r"` // Ethereum: First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Ethereum: Second coordinate of the ECDSA signature.
}

// Validate verifies the transaction has a proper signature that conforms to
// our standards and a well formed body.
func (tx SignedTx) Validate(chainID uint16) error {
	if tx.ChainID != chainID {
		return fmt.Errorf("invalid chain id, got[%d] exp[%d]", tx.ChainID, chainID)
	}

	if err := tx.Tx.Validate(); err != nil {
		return err
	}

	return signature.VerifySignature(tx.V, tx.R, tx.S)
}

// FromAddress extracts the address that signed the transaction.
func (tx SignedTx) FromAddress() (names.Address, error) {
	address, err := signature.FromAddress(tx.Tx, tx.V, tx.R, tx.S)
	return names.Address(address), err
}

// TxID returns the identifier of the transaction. Outputs created by the
// transaction are referenced by this id.
func (tx SignedTx) TxID() string {
	return signature.Hash(tx)
}

// Operation converts the transaction into the name operation it performs.
func (tx SignedTx) Operation() (names.Operation, error) {
	from, err := tx.FromAddress()
	if err != nil {
		return names.Operation{}, err
	}

	op := names.Operation{
		Kind:     tx.Kind,
		Hash:     tx.CommitHash,
		Name:     tx.Name,
		Salt:     tx.Salt,
		Value:    tx.Value,
		Claimant: from,
		Target:   tx.Target,
		Spends:   tx.Spends,
		Creates:  names.Outpoint{TxID: tx.TxID()},
	}

	return op, nil
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	from, err := tx.FromAddress()
	if err != nil {
		from = "unknown"
	}

	return fmt.Sprintf("%s:%d", from, tx.Nonce)
}

// =============================================================================

// BlockTx represents the transaction as it's recorded inside a block.
type BlockTx struct {
	SignedTx
	TimeStamp uint64 `json:"timestamp"` // Ethereum: The time the transaction was received.
}

// NewBlockTx constructs a new block transaction.
func NewBlockTx(signedTx SignedTx) BlockTx {
	return BlockTx{
		SignedTx:  signedTx,
		TimeStamp: uint64(time.Now().UTC().UnixMilli()),
	}
}

// Hash implements the merkle Hashable interface for providing a hash
// of a block transaction.
func (tx BlockTx) Hash() ([]byte, error) {
	return hexutil.Decode(signature.Hash(tx))
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two block transactions. If the nonce and signatures are the
// same, the two transactions are the same.
func (tx BlockTx) Equals(otherTx BlockTx) bool {
	txSig := signature.ToSignatureBytes(tx.V, tx.R, tx.S)
	otherTxSig := signature.ToSignatureBytes(otherTx.V, otherTx.R, otherTx.S)

	return tx.Nonce == otherTx.Nonce && bytes.Equal(txSig, otherTxSig)
}
