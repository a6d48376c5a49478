package main

import (
	"github.com/mj1618/desktop-switch/cmd"
	_ "github.com/mj1618/desktop-switch/internal/platform/darwin"
)

func main() {
	cmd.Execute()
}
