package commands

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fino-data/filingstore/filing"
)

var (
	addSourceFlag string
	addNameFlag   string
	addFormatFlag string
	addZipFlag    bool
)

func newAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add a document to the collection",
		Long: `Add one document to the collection. The checksum is computed from the file
content, the filing id is derived deterministically from the declared
metadata, and the content is stored under the resolved key.`,
		Example: `  # Add an XBRL report fetched from EDINET
  filingstore add --source edinet --format xbrl report.xbrl

  # Add a zipped filing
  filingstore add --source edgar --zip 0000320193-24-000123.zip`,
		Args: cobra.ExactArgs(1),
		RunE: runAdd,
	}

	cmd.Flags().StringVar(&addSourceFlag, "source", "", "Data source tag (required)")
	cmd.Flags().StringVar(&addNameFlag, "name", "", "Document name (default: file basename)")
	cmd.Flags().StringVar(&addFormatFlag, "format", "", "Document format, e.g. xbrl, pdf (required unless --zip)")
	cmd.Flags().BoolVar(&addZipFlag, "zip", false, "Mark the document as a ZIP archive")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	name := addNameFlag
	if name == "" {
		name = filepath.Base(path)
	}
	format := addFormatFlag
	if format == "" {
		if !addZipFlag {
			return fmt.Errorf("--format is required unless --zip is set")
		}
		format = strings.TrimPrefix(filepath.Ext(name), ".")
		if format == "" {
			format = "zip"
		}
	}

	sum := sha256.Sum256(content)
	f, err := filing.New(nil, map[string]any{
		filing.FieldSource:   addSourceFlag,
		filing.FieldName:     name,
		filing.FieldFormat:   format,
		filing.FieldIsZip:    addZipFlag,
		filing.FieldChecksum: hex.EncodeToString(sum[:]),
	})
	if err != nil {
		return err
	}

	coll, err := openCollection()
	if err != nil {
		return err
	}
	defer coll.Close()

	_, stored, err := coll.Add(cmd.Context(), f, content)
	if err != nil {
		return err
	}

	color.Green("✓ added %s", name)
	fmt.Printf("  id:   %s\n", f.ID())
	fmt.Printf("  path: %s\n", stored)
	return nil
}
