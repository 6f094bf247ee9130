package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the deltabar CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("deltabar version %s\n", version)
		fmt.Println("A bar-driven futures strategy engine with volume-delta signals")
		fmt.Println("https://github.com/rustyeddy/deltabar")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
