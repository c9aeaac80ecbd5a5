// Package main is the entry point for the tabschema CLI binary.
package main

import (
	"os"

	cli "tabschema/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
