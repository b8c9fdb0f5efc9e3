package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of memos-mcp",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("memos-mcp v1.0.0")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
