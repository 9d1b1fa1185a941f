// Package main provides the fafquery command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/fafquery/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
