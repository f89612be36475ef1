package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "resywatch",
		Short: "Watches Resy venues for open slots and books the best match",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newCycleCmd())
	root.AddCommand(newVenueCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
