package main

import (
	"os"

	"github.com/spec-kit/sla-governance/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
