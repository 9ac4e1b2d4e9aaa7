// Command trapcheck verifies the trap vector of a bl602rt build: it prints
// the frame layout, checks the alignment of the linked vector symbol and
// runs the vector sources through the hart simulator.
//
// trapcheck must be run from the repository root.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose     bool
	profilePath string
	root        string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "trapcheck",
	Short: "Check the bl602rt trap vector against its target profile",
	Long: `trapcheck loads a target profile (targets/*.yaml) and checks the trap
vector sources and linked images against it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}

		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if matches, _ := filepath.Glob(filepath.Join(root, "kernel")); len(matches) != 1 {
			return fmt.Errorf("%s: not a bl602rt repository root", root)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "targets/bl602.yaml", "target profile")
	rootCmd.PersistentFlags().StringVar(&root, "root", ".", "repository root")

	layoutCmd.Flags().StringVar(&layoutVariant, "variant", "", "vector variant (int or fpu); defaults to the profile variant")
	layoutCmd.Flags().StringVarP(&layoutFormat, "format", "f", "table", "output format (table or yaml)")

	rootCmd.AddCommand(layoutCmd, alignCmd, verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadProfile reads the profile named by the global flags.
func loadProfile() (*Profile, error) {
	path := profilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	p, err := LoadProfile(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded profile", zap.String("path", path), zap.String("target", p.Target))
	return p, nil
}
