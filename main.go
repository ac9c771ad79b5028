package main

import (
	"os"

	"github.com/asaidimu/go-daybed/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
