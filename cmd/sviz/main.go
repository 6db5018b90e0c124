package main

import (
	"os"

	"github.com/vanderheijden86/supplyviz/internal/cli"
	"github.com/vanderheijden86/supplyviz/pkg/version"
)

func main() {
	if err := cli.NewRootCommand(version.Version).Execute(); err != nil {
		os.Exit(1)
	}
}
