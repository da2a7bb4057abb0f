package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/qir/internal/sqlparse"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	SQL  bool // also compile for SQLite
	Wire bool // also show the hex wire encoding
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <query>",
		Short: "Parse a textual query and print its canonical dump",
		Long: `Parse a query in the textual syntax, validate it and print its dump.

Exit codes:
  0 - Query is valid
  1 - Syntax or validation error

Examples:
  qir parse "select * from items where price > 100 limit 10"
  qir parse "describe items, orders" --format json
  qir parse "select * from items order by name desc" --sql --wire`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "also print the compiled SQLite statement")
	cmd.Flags().BoolVar(&opts.Wire, "wire", false, "also print the hex wire encoding")

	return cmd
}

func runParse(opts *ParseOptions, text string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	q, err := sqlparse.Parse(text)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	view, err := buildView(q, viewOptions{wire: opts.Wire, sql: opts.SQL})
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	return formatter.Success(view, view.text())
}
