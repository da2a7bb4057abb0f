package cli

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/qir/internal/dsl"
	"github.com/roach88/qir/internal/queryir"
	"github.com/roach88/qir/internal/sqlparse"
	"github.com/roach88/qir/internal/wire"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Output     string // output file path
	FromDSL    bool   // argument is a DSL file, not query text
	SkipJoins  bool
	SkipMerges bool
	SkipPaging bool
}

// EncodeResult is the JSON payload of the encode command.
type EncodeResult struct {
	Bytes  int    `json:"bytes"`
	Wire   string `json:"wire"`
	Output string `json:"output,omitempty"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode <query>",
		Short: "Encode a query to the binary wire format",
		Long: `Parse a query and encode it to the binary wire format.

Without --output the encoding is printed as hex. With --dsl the argument is
a JSON DSL file ("-" for stdin).

Examples:
  qir encode "select * from items limit 10"
  qir encode "select * from items limit 10" -o query.bin
  qir encode --dsl query.json --skip-merges`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().BoolVar(&opts.FromDSL, "dsl", false, "read the query from a JSON DSL file")
	cmd.Flags().BoolVar(&opts.SkipJoins, "skip-joins", false, "omit joined children")
	cmd.Flags().BoolVar(&opts.SkipMerges, "skip-merges", false, "omit merged children")
	cmd.Flags().BoolVar(&opts.SkipPaging, "skip-paging", false, "omit limit and offset")

	return cmd
}

func runEncode(opts *EncodeOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	q, err := loadQuery(cmd, formatter, arg, opts.FromDSL)
	if err != nil {
		return err
	}

	var encOpts []wire.EncodeOption
	if opts.SkipJoins {
		encOpts = append(encOpts, wire.SkipJoinQueries())
	}
	if opts.SkipMerges {
		encOpts = append(encOpts, wire.SkipMergeQueries())
	}
	if opts.SkipPaging {
		encOpts = append(encOpts, wire.SkipLimitOffset())
	}

	data, err := wire.Encode(q, encOpts...)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	result := EncodeResult{Bytes: len(data), Wire: hex.EncodeToString(data), Output: opts.Output}
	if opts.Output == "" {
		return formatter.Success(result, result.Wire)
	}

	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
	}
	return formatter.Success(result, fmt.Sprintf("Wrote %d bytes to %s", len(data), opts.Output))
}

// loadQuery parses arg as query text, or as a DSL file path when fromDSL.
// Failures are already reported through f.
func loadQuery(cmd *cobra.Command, f *OutputFormatter, arg string, fromDSL bool) (*queryir.Query, error) {
	if !fromDSL {
		q, err := sqlparse.Parse(arg)
		if err != nil {
			return nil, f.Fail(ExitFailure, err)
		}
		return q, nil
	}

	data, err := readInput(cmd, arg)
	if err != nil {
		return nil, inputError(f, arg, err)
	}
	q, err := dsl.Parse(data)
	if err != nil {
		return nil, f.Fail(ExitFailure, err)
	}
	return q, nil
}
