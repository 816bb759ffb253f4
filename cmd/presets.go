package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/backdrop/internal/config"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the known segmentation models",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		fmt.Println("rembg models:")
		for _, name := range cfg.Presets.ModelNames() {
			preset := cfg.Presets.Models[name]
			marker := " "
			if name == cfg.Rembg.Model {
				marker = "*"
			}
			fmt.Printf(" %s %-20s %s\n", marker, name, preset.Description)
		}

		fmt.Println("\nhosted models:")
		fmt.Printf("   %-20s %s\n", config.BackendOpenAI, cfg.Presets.Hosted.OpenAI)
		fmt.Printf("   %-20s %s\n", config.BackendGemini, cfg.Presets.Hosted.Gemini)
		fmt.Printf("\nactive backend: %s (%s)\n", cfg.Removal.Backend, cfg.ModelName())
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
