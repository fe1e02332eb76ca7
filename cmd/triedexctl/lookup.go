package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogriffin/triedex"
)

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <key>",
		Short: "Print every value stored for key, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")

			idx, err := triedex.Open(path, triedex.Options{ReadOnly: true})
			if err != nil {
				return err
			}
			defer idx.Close()

			it, err := idx.Lookup([]byte(args[0]))
			if err != nil {
				return err
			}

			for {
				v, ok, err := it.Next()
				if err != nil {
					return err
				}

				if !ok {
					return nil
				}

				fmt.Println(v)
			}
		},
	}

	return cmd
}
