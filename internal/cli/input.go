package cli

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// inputError reports a failed read as a command error.
func inputError(f *OutputFormatter, path string, err error) error {
	code := ErrCodeReadFailed
	if errors.Is(err, os.ErrNotExist) {
		code = ErrCodeNotFound
	}
	_ = f.Error(code, err.Error(), map[string]any{"path": path})
	return WrapExitError(ExitCommandError, code, err)
}
