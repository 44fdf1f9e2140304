package cmd

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/genesis"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/state"
)

// accountInfo is the node's view of an address.
type accountInfo struct {
	Address names.Address     `json:"address"`
	Nonce   uint64            `json:"nonce"`
	Outputs []database.Output `json:"outputs"`
	KeyName string            `json:"key_name"`
}

// nameInfo is the node's view of a name.
type nameInfo struct {
	Name       string        `json:"name"`
	Value      string        `json:"value"`
	TxID       string        `json:"txid"`
	Vout       uint16        `json:"vout"`
	Address    names.Address `json:"address"`
	Height     uint64        `json:"height"`
	ExpiresIn  int64         `json:"expires_in"`
	Expired    bool          `json:"expired"`
	Superseded bool          `json:"superseded,omitempty"`
}

// submitResult is returned by the node for an accepted transaction.
type submitResult struct {
	Status string `json:"status"`
	TxID   string `json:"txid"`
}

// apiError is the error document returned by the node.
type apiError struct {
	Status int    `json:"-"`
	Msg    string `json:"error"`
	Code   int    `json:"code"`
	Kind   string `json:"kind"`
}

func (e *apiError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("node returned %d: %s (%d): %s", e.Status, e.Kind, e.Code, e.Msg)
	}
	return fmt.Sprintf("node returned %d: %s", e.Status, e.Msg)
}

// =============================================================================

// client talks to the public API of a node.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) get(ctx context.Context, path string, v any) error {
	return c.send(ctx, http.MethodGet, path, nil, v)
}

func (c *client) post(ctx context.Context, path string, body any, v any) error {
	return c.send(ctx, http.MethodPost, path, body, v)
}

func (c *client) send(ctx context.Context, method string, path string, body any, v any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			apiErr.Msg = http.StatusText(resp.StatusCode)
		}
		return &apiErr
	}

	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// =============================================================================

// chainID returns the chain id the node runs.
func (c *client) chainID(ctx context.Context) (uint16, error) {
	var gen genesis.Genesis
	if err := c.get(ctx, "/v1/genesis/list", &gen); err != nil {
		return 0, err
	}

	return gen.ChainID, nil
}

// nextNonce returns the nonce to use for the next transaction of the address.
// Transactions still in the mempool are taken into account.
func (c *client) nextNonce(ctx context.Context, address names.Address) (uint64, error) {
	var acct accountInfo
	if err := c.get(ctx, "/v1/accounts/"+string(address), &acct); err != nil {
		return 0, err
	}

	var pending []state.PendingOp
	if err := c.get(ctx, "/v1/names/pending", &pending); err != nil {
		return 0, err
	}

	nonce := acct.Nonce
	for _, op := range pending {
		if op.From.Equal(address) && op.Nonce > nonce {
			nonce = op.Nonce
		}
	}

	return nonce + 1, nil
}

// submit sends the signed transaction to the node.
func (c *client) submit(ctx context.Context, tx database.SignedTx) (submitResult, error) {
	var res submitResult
	if err := c.post(ctx, "/v1/tx/submit", tx, &res); err != nil {
		return submitResult{}, err
	}

	return res, nil
}

// sign signs the transaction with the wallet key and submits it.
func sign(ctx context.Context, c *client, tx database.Tx, privateKey *ecdsa.PrivateKey) (submitResult, error) {
	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		return submitResult{}, err
	}

	return c.submit(ctx, signedTx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
