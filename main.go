// Package main is the entry point for clo, the command-line Odoo client.
// It queries and changes the records of an Odoo instance through its XML-RPC API.
package main

import (
	"clo/cli/cmd"
)

// main is the entry point for clo.
// It runs the command line and exits with the status of the action.
func main() {
	cmd.Execute()
}
