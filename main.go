package main

import (
	"os"

	"github.com/scan-io-git/permscan/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
