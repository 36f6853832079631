package main

import (
	"github.com/robotalks/i2cslave.go/pkg/cli/sh"
	env "github.com/robotalks/i2cslave.go/pkg/l1/env/connector"

	_ "github.com/robotalks/i2cslave.go/pkg/cli/cmds/i2c"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
