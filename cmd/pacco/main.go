// Command pacco manages binary-artifact remotes, registries and binaries.
package main

import (
	"fmt"
	"os"
)

func main() {
	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pacco:", err)
		os.Exit(1)
	}
}
