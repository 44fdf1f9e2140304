package cmd

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the address, nonce and outputs of the wallet",
	RunE:  accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func accountRun(cmd *cobra.Command, args []string) error {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return err
	}

	address := names.PublicKeyToAddress(privateKey.PublicKey)

	var acct accountInfo
	if err := newClient(nodeURL).get(cmd.Context(), "/v1/accounts/"+string(address), &acct); err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), acct)
}
