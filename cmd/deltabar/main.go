package main

import (
	"os"

	"github.com/rustyeddy/deltabar/cmd/deltabar/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
