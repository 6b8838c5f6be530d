package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "certctl",
		Short: "Operate the certification question pipeline from the command line",
	}

	root.AddCommand(extractCmd(), parseCmd(), ingestCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
