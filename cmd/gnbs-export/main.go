// Command gnbs-export summarizes a survey export offline, without the HTTP
// service, optionally merging a persisted review ledger.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
