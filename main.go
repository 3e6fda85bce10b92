// Package main is the entry point for the uidb CLI.
// It runs SQL gateway operations locally or through the gRPC bridge.
package main

import (
	"uidb/gateway/cmd"
)

// main is the entry point for the uidb CLI.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
