package cmd

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	neturl "net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/spf13/cobra"
)

var (
	saltHex   string
	commitTx  string
	target    string
	atHeight  uint64
	scanCount int
)

var nameCmd = &cobra.Command{
	Use:   "name",
	Short: "Register, update and look up names",
}

var nameNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Commit to a name without disclosing it",
	Args:  cobra.ExactArgs(1),
	RunE:  nameNewRun,
}

var nameFirstUpdateCmd = &cobra.Command{
	Use:   "firstupdate <name> <value>",
	Short: "Reveal a matured commitment and register the name",
	Args:  cobra.ExactArgs(2),
	RunE:  nameFirstUpdateRun,
}

var nameUpdateCmd = &cobra.Command{
	Use:   "update <name> <value>",
	Short: "Change the value of a name or transfer it with --to",
	Args:  cobra.ExactArgs(2),
	RunE:  nameUpdateRun,
}

var nameShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the current record of a name",
	Args:  cobra.ExactArgs(1),
	RunE:  nameShowRun,
}

var nameHistoryCmd = &cobra.Command{
	Use:   "history <name>",
	Short: "Show every record a name has had",
	Args:  cobra.ExactArgs(1),
	RunE:  nameHistoryRun,
}

var nameScanCmd = &cobra.Command{
	Use:   "scan [start]",
	Short: "List names in order",
	Args:  cobra.MaximumNArgs(1),
	RunE:  nameScanRun,
}

var nameListCmd = &cobra.Command{
	Use:   "list [address]",
	Short: "List the names owned by an address. Defaults to the wallet",
	Args:  cobra.MaximumNArgs(1),
	RunE:  nameListRun,
}

var namePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List name operations waiting to be mined",
	Args:  cobra.NoArgs,
	RunE:  namePendingRun,
}

func init() {
	rootCmd.AddCommand(nameCmd)
	nameCmd.AddCommand(nameNewCmd, nameFirstUpdateCmd, nameUpdateCmd, nameShowCmd, nameHistoryCmd, nameScanCmd, nameListCmd, namePendingCmd)

	nameFirstUpdateCmd.Flags().StringVarP(&saltHex, "salt", "s", "", "Hex salt printed by name new.")
	nameFirstUpdateCmd.Flags().StringVarP(&commitTx, "commit", "c", "", "Transaction id of the commitment.")
	nameFirstUpdateCmd.MarkFlagRequired("salt")
	nameFirstUpdateCmd.MarkFlagRequired("commit")

	for _, c := range []*cobra.Command{nameNewCmd, nameFirstUpdateCmd, nameUpdateCmd} {
		c.Flags().StringVarP(&target, "to", "t", "", "Address receiving the output. Defaults to the wallet.")
	}

	nameShowCmd.Flags().Uint64Var(&atHeight, "height", 0, "Evaluate the name at this height. Defaults to the tip.")
	nameScanCmd.Flags().IntVarP(&scanCount, "count", "n", 500, "Maximum number of names to return.")
}

// =============================================================================

// commitment is what the wallet must remember between name new and
// name firstupdate.
type commitment struct {
	Name   string        `json:"name"`
	Salt   hexutil.Bytes `json:"salt"`
	Hash   names.Hash    `json:"hash"`
	TxID   string        `json:"txid"`
	Status string        `json:"status"`
}

func nameNewRun(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := names.CheckName(name); err != nil {
		return err
	}

	privateKey, address, err := loadWallet()
	if err != nil {
		return err
	}

	salt, err := newSalt()
	if err != nil {
		return err
	}

	to, err := targetAddress()
	if err != nil {
		return err
	}

	// The claimant bound into the hash is the address that will sign the
	// reveal. A commitment sent to another address can't be revealed by us.
	claimant := address
	if to != "" {
		claimant = to
	}

	c := newClient(nodeURL)
	ctx := cmd.Context()

	chainID, err := c.chainID(ctx)
	if err != nil {
		return err
	}

	nonce, err := c.nextNonce(ctx, address)
	if err != nil {
		return err
	}

	hash := names.CommitHash(salt, name, claimant)

	tx, err := database.NewCommitTx(chainID, nonce, hash, to)
	if err != nil {
		return err
	}

	res, err := sign(ctx, c, tx, privateKey)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), commitment{
		Name:   name,
		Salt:   salt,
		Hash:   hash,
		TxID:   res.TxID,
		Status: res.Status,
	})
}

func nameFirstUpdateRun(cmd *cobra.Command, args []string) error {
	name, value := args[0], args[1]

	salt, err := hexutil.Decode(saltHex)
	if err != nil {
		return fmt.Errorf("invalid salt: %w", err)
	}

	privateKey, address, err := loadWallet()
	if err != nil {
		return err
	}

	to, err := targetAddress()
	if err != nil {
		return err
	}

	c := newClient(nodeURL)
	ctx := cmd.Context()

	chainID, err := c.chainID(ctx)
	if err != nil {
		return err
	}

	nonce, err := c.nextNonce(ctx, address)
	if err != nil {
		return err
	}

	tx, err := database.NewRevealTx(chainID, nonce, name, salt, value, names.Outpoint{TxID: commitTx}, to)
	if err != nil {
		return err
	}

	res, err := sign(ctx, c, tx, privateKey)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), res)
}

func nameUpdateRun(cmd *cobra.Command, args []string) error {
	name, value := args[0], args[1]

	privateKey, address, err := loadWallet()
	if err != nil {
		return err
	}

	to, err := targetAddress()
	if err != nil {
		return err
	}

	c := newClient(nodeURL)
	ctx := cmd.Context()

	var current nameInfo
	if err := c.get(ctx, namePath("/v1/names/show/", name), &current); err != nil {
		return err
	}

	chainID, err := c.chainID(ctx)
	if err != nil {
		return err
	}

	nonce, err := c.nextNonce(ctx, address)
	if err != nil {
		return err
	}

	owner := names.Outpoint{TxID: current.TxID, Index: current.Vout}

	tx, err := database.NewMutateTx(chainID, nonce, name, value, owner, to)
	if err != nil {
		return err
	}

	res, err := sign(ctx, c, tx, privateKey)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), res)
}

func nameShowRun(cmd *cobra.Command, args []string) error {
	path := namePath("/v1/names/show/", args[0])
	if atHeight > 0 {
		path += "?height=" + strconv.FormatUint(atHeight, 10)
	}

	var info nameInfo
	if err := newClient(nodeURL).get(cmd.Context(), path, &info); err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), info)
}

func nameHistoryRun(cmd *cobra.Command, args []string) error {
	var history []nameInfo
	if err := newClient(nodeURL).get(cmd.Context(), namePath("/v1/names/history/", args[0]), &history); err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), history)
}

func nameScanRun(cmd *cobra.Command, args []string) error {
	q := neturl.Values{}
	if len(args) == 1 {
		q.Set("start", args[0])
	}
	q.Set("count", strconv.Itoa(scanCount))

	var list []nameInfo
	if err := newClient(nodeURL).get(cmd.Context(), "/v1/names/scan?"+q.Encode(), &list); err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), list)
}

func nameListRun(cmd *cobra.Command, args []string) error {
	var address names.Address
	switch len(args) {
	case 1:
		a, err := names.ToAddress(args[0])
		if err != nil {
			return err
		}
		address = a

	default:
		_, a, err := loadWallet()
		if err != nil {
			return err
		}
		address = a
	}

	var list []nameInfo
	if err := newClient(nodeURL).get(cmd.Context(), "/v1/names/list/"+string(address), &list); err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), list)
}

func namePendingRun(cmd *cobra.Command, args []string) error {
	var pending []map[string]any
	if err := newClient(nodeURL).get(cmd.Context(), "/v1/names/pending", &pending); err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), pending)
}

// =============================================================================

func loadWallet() (*ecdsa.PrivateKey, names.Address, error) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return nil, "", err
	}

	return privateKey, names.PublicKeyToAddress(privateKey.PublicKey), nil
}

func targetAddress() (names.Address, error) {
	if target == "" {
		return "", nil
	}

	return names.ToAddress(target)
}

// newSalt returns a random salt of the maximum allowed length.
func newSalt() ([]byte, error) {
	salt := make([]byte, names.MaxSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	return salt, nil
}

// namePath escapes the name for use after a route prefix. The slash that
// separates the namespace is kept.
func namePath(prefix string, name string) string {
	return prefix + (&neturl.URL{Path: name}).EscapedPath()
}
