package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogriffin/triedex"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List every entry record in the file, in file order",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")

			idx, err := triedex.Open(path, triedex.Options{ReadOnly: true})
			if err != nil {
				return err
			}
			defer idx.Close()

			entries, err := idx.Scan()
			if err != nil {
				return err
			}

			for _, e := range entries {
				fmt.Printf("%10d  %-6s  %d bytes\n", e.Offset, e.Kind, e.Length)
			}

			return nil
		},
	}

	return cmd
}
