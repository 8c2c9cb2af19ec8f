// Package main provides the DataPyn command-line interface.
package main

import (
	"os"

	"github.com/datapyn/datapyn/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
