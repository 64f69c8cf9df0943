package main

import (
	"os"

	"smartexpense/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
