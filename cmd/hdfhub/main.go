package main

import (
	"os"

	"github.com/ppiankov/hdfhub/internal/cli"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cli.SetVersion(version)
	os.Exit(cli.HandleError(cli.Execute()))
}
