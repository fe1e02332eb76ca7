package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ogriffin/triedex"
)

func newInsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert <key> <value>",
		Short: "Insert a value under key and flush",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")

			value, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return err
			}

			idx, err := triedex.Open(path, triedex.Options{})
			if err != nil {
				return err
			}
			defer idx.Close()

			if err := idx.Insert([]byte(args[0]), value); err != nil {
				return err
			}

			return idx.Flush()
		},
	}

	return cmd
}
