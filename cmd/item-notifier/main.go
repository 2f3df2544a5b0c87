// Package main is the entry point for the item-notifier service.
package main

import (
	"os"

	"github.com/donaldgifford/item-notifier/cmd/item-notifier/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
