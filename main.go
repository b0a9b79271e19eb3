package main

import "mcp-scheduler/cmd"

// version can be set during build with -ldflags.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
