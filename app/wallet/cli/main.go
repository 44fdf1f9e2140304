// This program is the wallet used to register and manage names.
package main

import "github.com/hlandauf/namecore/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
