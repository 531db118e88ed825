// Package main implements the busway CLI tool.
// It reconciles declarative event-routing topologies on Google Cloud.
package main

import "github.com/busway/busway/cmd/busway/cmd"

func main() {
	cmd.Execute()
}
