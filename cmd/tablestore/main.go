// Package main provides the tablestore CLI.
package main

import "github.com/mesh-intelligence/tablestore/internal/cli"

func main() {
	cli.Execute()
}
