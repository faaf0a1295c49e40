package main

import (
	"github.com/robotalks/wheel.go/pkg/cli/sh"
	"github.com/robotalks/wheel.go/pkg/env"

	_ "github.com/robotalks/wheel.go/pkg/cli/cmds/wheel"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
