// Package main is the command-line front end of the token app.
package main

import (
	"os"

	"github.com/sreeramp-official/solana-token-app/cmd/tokenctl/cli"
)

func main() {
	if err := cli.Run(); err != nil {
		os.Exit(1)
	}
}
