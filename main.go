package main

import (
	"os"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
