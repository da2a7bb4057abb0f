package cli

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qir/internal/wire"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Hex bool // input is hex text rather than raw bytes
	SQL bool
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode a wire-format query and print its dump",
		Long: `Decode a binary wire-format query and print its dump. Use "-" to read
from stdin and --hex when the input is hex text.

Exit codes:
  0 - Input decoded to a valid query
  1 - Malformed input (protocol error)
  2 - File cannot be read`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Hex, "hex", false, "input is hex text")
	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "also print the compiled SQLite statement")

	return cmd
}

func runDecode(opts *DecodeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	data, err := readInput(cmd, path)
	if err != nil {
		return inputError(formatter, path, err)
	}
	if opts.Hex {
		raw, err := hex.DecodeString(string(bytes.TrimSpace(data)))
		if err != nil {
			return formatter.Fail(ExitFailure, fmt.Errorf("invalid hex input: %w", err))
		}
		data = raw
	}

	q, err := wire.Decode(data)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	view, err := buildView(q, viewOptions{sql: opts.SQL})
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	return formatter.Success(view, view.text())
}
