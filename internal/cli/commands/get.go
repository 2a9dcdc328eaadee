package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var getOutputFlag string

func newGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a filing and its content by id",
		Example: `  # Show filing metadata
  filingstore get 4f8a22cc91d70e3ab6f2a7c09b3d5e11

  # Write the content to a file
  filingstore get 4f8a22cc91d70e3ab6f2a7c09b3d5e11 --output report.xbrl`,
		Args: cobra.ExactArgs(1),
		RunE: runGet,
	}

	cmd.Flags().StringVarP(&getOutputFlag, "output", "o", "", "Write content to this file")

	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	id := args[0]

	coll, err := openCollection()
	if err != nil {
		return err
	}
	defer coll.Close()

	f, content, path, err := coll.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	if f == nil {
		color.Yellow("filing %s not found", id)
		return nil
	}

	fmt.Printf("class: %s\n", f.Class())
	flat := f.ToMap()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-12s %v\n", k+":", flat[k])
	}
	fmt.Printf("%-12s %s (%d bytes)\n", "content:", path, len(content))

	if getOutputFlag != "" {
		if err := os.WriteFile(getOutputFlag, content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", getOutputFlag, err)
		}
		color.Green("✓ wrote %s", getOutputFlag)
	}
	return nil
}
