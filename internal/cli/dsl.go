package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/qir/internal/dsl"
)

// DSLOptions holds flags for the dsl command.
type DSLOptions struct {
	*RootOptions
	SQL  bool
	Wire bool
}

// NewDSLCommand creates the dsl command.
func NewDSLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DSLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dsl <file>",
		Short: "Parse a JSON DSL query document",
		Long: `Parse a JSON DSL document, check it against the DSL schema and print
the query dump. Use "-" to read from stdin.

Exit codes:
  0 - Document is a valid query
  1 - Syntax, schema or validation error
  2 - File cannot be read`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDSL(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "also print the compiled SQLite statement")
	cmd.Flags().BoolVar(&opts.Wire, "wire", false, "also print the hex wire encoding")

	return cmd
}

func runDSL(opts *DSLOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	data, err := readInput(cmd, path)
	if err != nil {
		return inputError(formatter, path, err)
	}

	q, err := dsl.Parse(data)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	view, err := buildView(q, viewOptions{wire: opts.Wire, sql: opts.SQL})
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	return formatter.Success(view, view.text())
}
