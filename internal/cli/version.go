package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Warder-Sonic/warder-wallet/internal/version"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// versionCheck queries GitHub for a newer release.
	versionCheck bool
)

// VersionResponse is the version command output.
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Latest    string `json:"latest,omitempty"`
	UpdateURL string `json:"update_url,omitempty"`
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Example: `  warder version
  warder version --check`,
	RunE: runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	response := VersionResponse{
		Version:   version.Version,
		Commit:    version.Commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if versionCheck {
		release, err := version.NewClient().LatestRelease(cmd.Context(), "Warder-Sonic", "warder-wallet")
		if err != nil {
			logger.Debug("release check failed: %v", err)
		} else {
			response.Latest = release.TagName
			if version.IsNewer(version.Version, release.TagName) {
				response.UpdateURL = "https://github.com/Warder-Sonic/warder-wallet/releases/latest"
			}
		}
	}

	if formatter.IsJSON() {
		return formatter.Print(response)
	}

	if err := formatter.Printf("warder %s (%s, %s)\n", version.String(), response.GoVersion, response.Platform); err != nil {
		return err
	}
	if response.UpdateURL != "" {
		return formatter.Printf("Update available: %s (%s)\n", response.Latest, response.UpdateURL)
	}
	if response.Latest != "" {
		return formatter.Println("Up to date")
	}
	return nil
}
