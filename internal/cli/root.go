package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "licenseprobe",
		Short: "Analyze the licensing of software artifacts",
		Long: `Licenseprobe downloads or opens a software artifact, unpacks it
recursively and scans every file for licensing information.

Supported artifact sources:
  - PyPI packages (wheel or sdist)
  - crates.io crates pinned in a Cargo.lock
  - archive download URLs
  - local archives, files and directories`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewScanCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
