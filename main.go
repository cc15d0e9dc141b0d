package main

import (
	"github.com/nvkha/mailplane/cmd"
)

// version will be set by the release pipeline during build.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
