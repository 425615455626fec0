// Command remotefs-fuse mounts a remote filesystem backend as a local
// FUSE mount point.
//
// Grounded on gcsfuse's own root main.go: a single Execute() call against
// the cobra root command, with a nonzero exit on error.
package main

import (
	"fmt"
	"os"

	"github.com/remotefs-rs/remotefs-fuse-go/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
