// Package main is the entry point for the nlq CLI binary.
package main

import (
	"os"

	cli "github.com/DanielChung520/AI-Box-sub013/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
