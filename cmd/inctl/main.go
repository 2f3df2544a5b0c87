// Package main is the entry point for the inctl CLI client.
package main

import (
	"github.com/donaldgifford/item-notifier/cmd/inctl/cmd"
)

func main() {
	cmd.Execute()
}
