// Command triedexctl is a small operator tool for inspecting and mutating
// a triedex file from the shell, built the same way the library itself is
// meant to be consumed: Open, Insert/Lookup/Scan, Flush, Close.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "triedexctl",
		Short: "Inspect and mutate a triedex index file",
	}

	root.PersistentFlags().String("file", "", "path to the index file")
	root.MarkPersistentFlagRequired("file")

	root.AddCommand(newInsertCmd())
	root.AddCommand(newLookupCmd())
	root.AddCommand(newScanCmd())
	root.AddCommand(newServeCmd())

	return root
}
