package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/backdrop/internal/config"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// buildInfo is what `backdrop version --json` prints.
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Backend   string `json:"backend"`
	Model     string `json:"model"`
}

func currentBuildInfo(cfg *config.Config) buildInfo {
	return buildInfo{
		Version:   Version,
		Commit:    CommitSHA,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Backend:   cfg.Removal.Backend,
		Model:     cfg.ModelName(),
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the configured removal backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentBuildInfo(config.Load())
		if mustGetBool(cmd, "json") {
			return outputJSON(info)
		}
		fmt.Printf("backdrop %s (%s)\n", info.Version, info.GoVersion)
		fmt.Printf("  Commit:  %s\n", info.Commit)
		fmt.Printf("  Built:   %s\n", info.BuildDate)
		fmt.Printf("  Backend: %s (%s)\n", info.Backend, info.Model)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "Output as JSON")
}
