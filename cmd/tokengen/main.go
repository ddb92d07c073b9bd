// Command tokengen mints and inspects development tokens for the Hearth API.
// Tokens are signed with the dev key unless --signing-key or JWT_SIGNING_KEY
// says otherwise, so they will NOT work against production.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
