package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/renameio"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kozaktomas/backdrop/internal/compose"
	"github.com/kozaktomas/backdrop/internal/config"
	"github.com/kozaktomas/backdrop/internal/constants"
	"github.com/kozaktomas/backdrop/internal/pipeline"
)

var removeCmd = &cobra.Command{
	Use:   "remove [subject]",
	Short: "Remove the background from an image",
	Long: `Remove the background from a subject image and optionally composite it
onto a new background.

A single subject writes processed.png (and final_output.png when a
background is given) into the output directory. With --batch every
jpg/jpeg/png file in the directory is processed and written as
<name>_processed.png and <name>_final.png.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)

	removeCmd.Flags().String("background", "", "Background image to composite the subject onto")
	removeCmd.Flags().Int("threshold", constants.DefaultThreshold, "Mask threshold (0-255)")
	removeCmd.Flags().String("output-dir", "", "Output directory (overrides OUTPUT_DIR)")
	removeCmd.Flags().String("batch", "", "Process every image in this directory")
	removeCmd.Flags().Bool("json", false, "Output the run result as JSON")
}

func runRemove(cmd *cobra.Command, args []string) error {
	batchDir := mustGetString(cmd, "batch")
	if (batchDir == "") == (len(args) == 0) {
		return errors.New("provide either a subject image or --batch <dir>")
	}

	threshold := mustGetInt(cmd, "threshold")
	if err := pipeline.ValidateThreshold(threshold); err != nil {
		return err
	}

	var background []byte
	if path := mustGetString(cmd, "background"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read background: %w", err)
		}
		background = data
	}

	cfg := config.Load()
	if dir := mustGetString(cmd, "output-dir"); dir != "" {
		cfg.Output.Dir = dir
	}

	ctx := context.Background()
	recorder, closeRecorder, err := openRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRecorder()

	p, err := newPipeline(ctx, cfg, recorder)
	if err != nil {
		return err
	}

	if batchDir != "" {
		return runBatch(ctx, p, batchDir, background, threshold)
	}
	return runSingle(ctx, p, args[0], background, threshold, mustGetBool(cmd, "json"))
}

func runSingle(ctx context.Context, p *pipeline.Pipeline, path string, background []byte, threshold int, jsonOutput bool) error {
	subject, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read subject: %w", err)
	}

	res, err := p.Run(ctx, pipeline.Input{
		Subject:           subject,
		SubjectName:       filepath.Base(path),
		ReplaceBackground: background != nil,
		Background:        background,
		Threshold:         threshold,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(res)
	}

	if res.SubjectError != "" {
		return errors.New(res.SubjectError)
	}
	fmt.Printf("Background removed (%dx%d, %s, threshold %d): %s\n",
		res.Width, res.Height, res.Backend, res.Threshold, res.ProcessedPath)
	if res.BackgroundError != "" {
		return errors.New(res.BackgroundError)
	}
	if res.Composited() {
		fmt.Printf("%s %s\n", res.Message, res.FinalPath)
	}
	return nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// listImages returns the accepted image files in dir, sorted by name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(e.Name())), ".")
		if slices.Contains(constants.AcceptedImageTypes, ext) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// exportImage writes img as <stem>_<suffix>.png next to the fixed outputs.
func exportImage(dir, source, suffix string, img *image.NRGBA) error {
	data, err := compose.EncodePNG(img)
	if err != nil {
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return renameio.WriteFile(filepath.Join(dir, stem+"_"+suffix+".png"), data, 0o644)
}

func runBatch(ctx context.Context, p *pipeline.Pipeline, dir string, background []byte, threshold int) error {
	files, err := listImages(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No %s images found in %s\n", strings.Join(constants.AcceptedImageTypes, "/"), dir)
		return nil
	}

	printer := message.NewPrinter(language.English)
	printer.Printf("Images to process: %d\n\n", len(files))

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Removing backgrounds"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	start := time.Now()
	outDir := p.Storage().OutputDir()
	var succeeded, failed, composited int
	var pixels int64

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := processBatchFile(ctx, p, path, background, threshold)
		bar.Add(1)
		if err != nil {
			failed++
			log.WithError(err).WithField("file", filepath.Base(path)).Warn("Batch item failed")
			continue
		}

		if err := exportImage(outDir, path, "processed", res.Processed); err != nil {
			failed++
			log.WithError(err).WithField("file", filepath.Base(path)).Warn("Failed to export processed image")
			continue
		}
		succeeded++
		pixels += int64(res.Width) * int64(res.Height)

		if res.Composited() {
			if err := exportImage(outDir, path, "final", res.Final); err != nil {
				log.WithError(err).WithField("file", filepath.Base(path)).Warn("Failed to export final image")
				continue
			}
			composited++
		}
	}

	fmt.Println()
	printer.Printf("Processed %d of %d images (%d pixels) in %s\n",
		succeeded, len(files), pixels, time.Since(start).Round(time.Millisecond))
	if background != nil {
		printer.Printf("Composited onto the new background: %d\n", composited)
	}
	if failed > 0 {
		printer.Printf("Failed: %d\n", failed)
	}
	fmt.Printf("Results written to %s\n", outDir)
	return nil
}

func processBatchFile(ctx context.Context, p *pipeline.Pipeline, path string, background []byte, threshold int) (*pipeline.Result, error) {
	subject, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := p.Run(ctx, pipeline.Input{
		Subject:           subject,
		SubjectName:       filepath.Base(path),
		ReplaceBackground: background != nil,
		Background:        background,
		Threshold:         threshold,
	})
	if err != nil {
		return nil, err
	}
	if res.SubjectError != "" {
		return nil, errors.New(res.SubjectError)
	}
	if res.BackgroundError != "" {
		log.WithField("file", filepath.Base(path)).Warn(res.BackgroundError)
	}
	return res, nil
}
