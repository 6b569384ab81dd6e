package cmd

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/mj1618/page-tracker/internal/clickmap"
	"github.com/mj1618/page-tracker/internal/output"
	"github.com/mj1618/page-tracker/internal/store"
	"github.com/spf13/cobra"
)

// ClickmapResult is the output of the clickmap command.
type ClickmapResult struct {
	OK     bool   `yaml:"ok"     json:"ok"`
	Action string `yaml:"action" json:"action"`
	Clicks int    `yaml:"clicks" json:"clicks"`
	Path   string `yaml:"path"   json:"path"`
	Width  int    `yaml:"width"  json:"width"`
	Height int    `yaml:"height" json:"height"`
}

var clickmapCmd = &cobra.Command{
	Use:   "clickmap <bundle>",
	Short: "Render the clicks of a session as a PNG",
	Long: `Draw a box around every clicked element, labelled with its event number.
Clicks whose element box is unknown are drawn as a marker at the pointer.
Positions are in document coordinates, so a full-page screenshot makes a
good background.

Examples:
  page-tracker clickmap tracking-data-session_1.json -o clicks.png
  page-tracker clickmap session.json -o clicks.png --background page.png --page-width 1280`,
	Args: cobra.ExactArgs(1),
	RunE: runClickmap,
}

func init() {
	rootCmd.AddCommand(clickmapCmd)
	clickmapCmd.Flags().StringP("output", "o", "clickmap.png", "Output PNG path")
	clickmapCmd.Flags().String("background", "", "PNG or JPEG drawn under the marks, e.g. a full-page screenshot")
	clickmapCmd.Flags().Float64("page-width", 0, "Document width in CSS pixels the background was captured at (0 = same as image)")
	clickmapCmd.Flags().Int("width", 0, "Canvas width without a background (0 = fit)")
	clickmapCmd.Flags().Int("height", 0, "Canvas height without a background (0 = fit)")
}

func runClickmap(cmd *cobra.Command, args []string) error {
	b, err := store.ReadBundle(args[0])
	if err != nil {
		return err
	}

	var opts clickmap.Options
	opts.PageWidth, _ = cmd.Flags().GetFloat64("page-width")
	opts.Width, _ = cmd.Flags().GetInt("width")
	opts.Height, _ = cmd.Flags().GetInt("height")
	if bgPath, _ := cmd.Flags().GetString("background"); bgPath != "" {
		f, err := os.Open(bgPath)
		if err != nil {
			return fmt.Errorf("opening background: %w", err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("decoding background: %w", err)
		}
		opts.Background = img
	}

	img, err := clickmap.Render(b.Events, opts)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("output")
	if !strings.HasSuffix(strings.ToLower(path), ".png") {
		path += ".png"
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := encodePNG(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return output.Print(ClickmapResult{
		OK:     true,
		Action: "clickmap",
		Clicks: len(clickmap.Marks(b.Events)),
		Path:   path,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	})
}

func encodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}
