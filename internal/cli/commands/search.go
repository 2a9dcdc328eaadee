package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fino-data/filingstore/catalog"
	"github.com/fino-data/filingstore/catalog/query"
	"github.com/fino-data/filingstore/filing"
)

var (
	searchSourceFlag  string
	searchFormatFlag  string
	searchNameFlag    string
	searchLimitFlag   int
	searchOffsetFlag  int
	searchOrderByFlag string
	searchDescFlag    bool
)

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search cataloged filings",
		Example: `  # Most recent EDINET filings
  filingstore search --source edinet

  # XBRL filings whose name contains "annual", oldest first
  filingstore search --format xbrl --name annual --order-by created_at`,
		RunE: runSearch,
	}

	cmd.Flags().StringVar(&searchSourceFlag, "source", "", "Filter by source")
	cmd.Flags().StringVar(&searchFormatFlag, "format", "", "Filter by format")
	cmd.Flags().StringVar(&searchNameFlag, "name", "", "Filter by name substring")
	cmd.Flags().IntVar(&searchLimitFlag, "limit", 20, "Maximum results")
	cmd.Flags().IntVar(&searchOffsetFlag, "offset", 0, "Result offset")
	cmd.Flags().StringVar(&searchOrderByFlag, "order-by", "", "Order by field (default created_at, newest first)")
	cmd.Flags().BoolVar(&searchDescFlag, "desc", false, "Order descending")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	var preds []query.Expr
	if searchSourceFlag != "" {
		preds = append(preds, query.F(filing.FieldSource).Eq(searchSourceFlag))
	}
	if searchFormatFlag != "" {
		preds = append(preds, query.F(filing.FieldFormat).Eq(searchFormatFlag))
	}
	if searchNameFlag != "" {
		preds = append(preds, query.F(filing.FieldName).Contains(searchNameFlag))
	}

	var pred query.Expr
	if len(preds) > 0 {
		pred = query.And(preds...)
	}

	coll, err := openCollection()
	if err != nil {
		return err
	}
	defer coll.Close()

	results, err := coll.Search(cmd.Context(), pred, catalog.SearchOptions{
		Limit:   searchLimitFlag,
		Offset:  searchOffsetFlag,
		OrderBy: searchOrderByFlag,
		Desc:    searchDescFlag,
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("no filings matched")
		return nil
	}
	for _, f := range results {
		fmt.Printf("%s  %-10s %-28s %s\n",
			f.ID(), f.Source(), f.Name(), filing.FormatTime(f.CreatedAt()))
	}
	return nil
}
