// Package main generates CLI reference documentation from the item-notifier
// and inctl command trees.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	inctl "github.com/donaldgifford/item-notifier/cmd/inctl/cmd"
	server "github.com/donaldgifford/item-notifier/cmd/item-notifier/cmd"
)

func main() {
	output := flag.String("output", "docs/cli", "output directory for generated markdown")
	flag.Parse()

	trees := map[string]*cobra.Command{
		"inctl":         inctl.Root(),
		"item-notifier": server.Root(),
	}

	for name, root := range trees {
		dir := filepath.Join(*output, name)
		if err := generate(root, dir); err != nil {
			log.Fatalf("generating %s docs: %v", name, err)
		}
		fmt.Printf("%s CLI docs generated in %s/\n", name, dir)
	}
}

func generate(root *cobra.Command, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	root.DisableAutoGenTag = true
	return doc.GenMarkdownTree(root, dir)
}
