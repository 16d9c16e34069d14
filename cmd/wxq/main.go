// Command wxq runs ad-hoc and canned weather queries against the embedded
// database from the command line.
//
// Usage:
//
//	wxq tables
//	wxq query "SELECT element, count(*) FROM weather GROUP BY element"
//	wxq series USW00094728 --start 2023-01-01 --end 2023-03-31 --json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "wxq",
		Short:         "Query NOAA daily weather observations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("weather", "", "local weather Parquet file (default: download)")
	root.PersistentFlags().String("stations", "", "local stations Parquet file (default: download)")
	root.PersistentFlags().Bool("json", false, "print JSON instead of a table")
	root.PersistentFlags().Bool("verbose", false, "log each query")
	addCommands(root)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
