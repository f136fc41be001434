// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ojamed/internal/client"
	"github.com/pdiddy/ojamed/internal/download"
	"github.com/pdiddy/ojamed/internal/selection"
	"github.com/pdiddy/ojamed/pkg/types"
)

var extractSlidesCmd = &cobra.Command{
	Use:   "extract-slides <lecture>",
	Short: "Print the slide metadata the service extracts from a lecture",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtractSlides,
}

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Detect, segment, and rank maskable regions in a slide image",
	Long: `Detect prints the regions the service would mask in an image as JSON.
Save the output and pass it to occlude or export-apkg with --regions.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

var occludeCmd = &cobra.Command{
	Use:   "occlude <image>",
	Short: "Render image occlusion cards for detected regions",
	Args:  cobra.ExactArgs(1),
	RunE:  runOcclude,
}

var exportApkgCmd = &cobra.Command{
	Use:   "export-apkg <image>",
	Short: "Package image occlusion regions into an Anki deck",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportApkg,
}

func init() {
	d := detectCmd.Flags()
	d.String("slide-text", "", "slide text used to rank regions")
	d.String("transcript-text", "", "transcript text used to rank regions")
	d.Int("max-masks", 6, "max masks per image")
	d.Int("min-mask-area", 900, "minimum mask area in pixels")
	d.Float64("threshold", 0.25, "detection confidence threshold")
	d.Float64("nms-iou", 0.5, "non-maximum suppression IoU threshold")

	o := occludeCmd.Flags()
	o.String("regions", "", "JSON file produced by detect (required)")
	o.Int("max-masks", 6, "max masks per image")
	o.Float64("overlap-iou", 0.4, "overlap IoU threshold")
	o.String("mask-style", string(types.MaskFill), "fill, outline, or blur")
	o.String("output", "occlusion_items.zip", "archive file name")
	o.String("output-dir", "", "directory for the archive (default: output_dir setting)")

	e := exportApkgCmd.Flags()
	e.String("regions", "", "JSON file produced by detect (required)")
	e.String("deck-name", client.DefaultDeckName, "Anki deck name")
	e.String("output", "occlusion_deck.apkg", "deck file name")
	e.String("output-dir", "", "directory for the deck (default: output_dir setting)")

	rootCmd.AddCommand(extractSlidesCmd, detectCmd, occludeCmd, exportApkgCmd)
}

func runExtractSlides(cmd *cobra.Command, args []string) error {
	c, err := newClient(clientConfig())
	if err != nil {
		return err
	}
	file, err := selection.FromPath(args[0])
	if err != nil {
		return err
	}
	if d := selection.Validate(file); !d.Accepted {
		return d.Err()
	}

	out, err := c.ExtractSlides(cmd.Context(), file)
	if err != nil {
		return err
	}
	return printJSON(cmd, out)
}

func runDetect(cmd *cobra.Command, args []string) error {
	c, err := newClient(clientConfig())
	if err != nil {
		return err
	}
	image, err := selection.FromPath(args[0])
	if err != nil {
		return err
	}

	f := cmd.Flags()
	var opts client.DetectOptions
	opts.SlideText, _ = f.GetString("slide-text")
	opts.TranscriptText, _ = f.GetString("transcript-text")
	opts.MaxMasksPerImage, _ = f.GetInt("max-masks")
	opts.MinMaskAreaPx, _ = f.GetInt("min-mask-area")
	opts.DetectionThreshold, _ = f.GetFloat64("threshold")
	opts.NMSIoUThreshold, _ = f.GetFloat64("nms-iou")

	out, err := c.DetectSegments(cmd.Context(), image, opts)
	if err != nil {
		return err
	}
	return printJSON(cmd, out)
}

func runOcclude(cmd *cobra.Command, args []string) error {
	cfg := clientConfig()
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	image, regions, err := imageAndRegions(cmd, args[0])
	if err != nil {
		return err
	}

	f := cmd.Flags()
	var opts client.OcclusionOptions
	opts.MaxMasksPerImage, _ = f.GetInt("max-masks")
	opts.OverlapIoUThreshold, _ = f.GetFloat64("overlap-iou")
	style, _ := f.GetString("mask-style")
	opts.MaskStyle = types.MaskStyle(style)

	data, err := c.BuildOcclusionItems(cmd.Context(), image, regions, opts)
	if err != nil {
		return err
	}
	return save(cmd, cfg, data)
}

func runExportApkg(cmd *cobra.Command, args []string) error {
	cfg := clientConfig()
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	image, regions, err := imageAndRegions(cmd, args[0])
	if err != nil {
		return err
	}

	deckName, _ := cmd.Flags().GetString("deck-name")
	data, err := c.ExportApkg(cmd.Context(), image, regions, deckName)
	if err != nil {
		return err
	}
	return save(cmd, cfg, data)
}

func imageAndRegions(cmd *cobra.Command, imagePath string) (types.SelectedFile, json.RawMessage, error) {
	image, err := selection.FromPath(imagePath)
	if err != nil {
		return types.SelectedFile{}, nil, err
	}

	path, _ := cmd.Flags().GetString("regions")
	if path == "" {
		return types.SelectedFile{}, nil, fmt.Errorf("--regions is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.SelectedFile{}, nil, fmt.Errorf("reading regions: %w", err)
	}
	if !json.Valid(data) {
		return types.SelectedFile{}, nil, fmt.Errorf("regions file %s is not valid JSON", path)
	}
	return image, json.RawMessage(data), nil
}

// save writes an archive with the download dispatcher and reports the path.
func save(cmd *cobra.Command, cfg types.ClientConfig, data []byte) error {
	dir := cfg.OutputDir
	if d, _ := cmd.Flags().GetString("output-dir"); d != "" {
		dir = d
	}
	name, _ := cmd.Flags().GetString("output")

	path, err := download.Dispatcher{Dir: dir}.Trigger(data, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved: %s\n", path)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
