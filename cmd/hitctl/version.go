package main

import (
	"fmt"
	"strings"

	"github.com/georgfedermann/hit2assext"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hitctl",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hitctl version %s\n", strings.TrimSpace(hit2assext.Version))
		},
	}
}
