package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for environment overrides (QIR_FORMAT, QIR_VERBOSE).
const envPrefix = "QIR"

// configKeys are the global settings viper resolves. Each has a persistent
// flag of the same name.
var configKeys = []string{"format", "verbose"}

// loadConfig layers flags over environment over config file over defaults
// and writes the result back into opts.
func loadConfig(cmd *cobra.Command, opts *RootOptions) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if opts.Config != "" {
		v.SetConfigFile(opts.Config)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", opts.Config, err)
		}
	}

	for _, key := range configKeys {
		flag := cmd.Flags().Lookup(key)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	opts.Format = v.GetString("format")
	opts.Verbose = v.GetBool("verbose")
	return nil
}
