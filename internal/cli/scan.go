package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/davrell/licenseprobe/internal/config"
	"github.com/davrell/licenseprobe/internal/report"
	"github.com/davrell/licenseprobe/probe"
)

// NewScanCmd creates the scan command
func NewScanCmd() *cobra.Command {
	defaults := config.Load()
	var opts probe.Options

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan an artifact for licensing information",
		Long: `Fetches the artifact from the selected source, unpacks it and scans
every contained file. Exactly one source flag must be given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}

			logrus.Debugf("Configuration: %+v", opts)

			summaries, err := probe.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, summary := range summaries {
				report.WriteSummary(os.Stdout, summary)
			}
			return nil
		},
	}

	// Artifact source flags, exactly one required
	cmd.Flags().StringVarP(&opts.Package, "package", "p", "", "PyPI package, name or name==version")
	cmd.Flags().StringVarP(&opts.Archive, "archive", "a", "", "Local archive to unpack and scan")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Single local file to scan in place")
	cmd.Flags().StringVarP(&opts.Directory, "directory", "d", "", "Local directory tree to scan in place")
	cmd.Flags().StringVarP(&opts.URL, "url", "u", "", "Archive download URL")
	cmd.Flags().StringVar(&opts.CargoLock, "cargo-lock", "", "Cargo.lock file, scans every pinned crate")

	// Tuning flags
	cmd.Flags().StringVar(&opts.IndexURL, "index-url", defaults.IndexURL, "Package index URL for PyPI downloads")
	cmd.Flags().BoolVar(&opts.PreferSdist, "prefer-sdist", defaults.PreferSdist, "Download the sdist instead of the wheel")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", defaults.Jobs, "Number of parallel scan workers")
	cmd.Flags().BoolVar(&opts.KeepTemp, "keep-temp", defaults.KeepTemp, "Keep unpacked directories for inspection")
	cmd.Flags().StringVar(&opts.RPMKeyring, "rpm-keyring", defaults.RPMKeyring, "Keyring used to verify RPM signatures")

	return cmd
}
