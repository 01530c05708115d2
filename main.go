package main

import (
	"github.com/keyforge/keyforge/cmd"

	_ "github.com/keyforge/keyforge/internal/platform/desktop"
)

func main() {
	cmd.Execute()
}
