package cli

import (
	"fmt"
	"image/color"
	"os"

	"github.com/soypat/geometry/ms3"
	"github.com/spf13/cobra"

	"github.com/soypat/gsdfvm/sdfaux"
	"github.com/soypat/gsdfvm/sdfmesh"
)

// SliceOptions holds flags for the slice command.
type SliceOptions struct {
	*RootOptions
	Output string
	Height int
	Color  string
}

// ValidColors are the slice color schemes.
var ValidColors = []string{"ring", "iq", "bw"}

// NewSliceCommand creates the slice command.
func NewSliceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SliceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "slice <scene.yaml>",
		Short: "Render the center Z slice of a scene to an image",
		Long: `Compile a scene and render the distance field on the plane through the center
of the scene bounds, perpendicular to Z.

The image format is chosen by the output file extension (.png, .bmp, .tif or .tiff).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlice(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output image file (required)")
	cmd.Flags().IntVar(&opts.Height, "height", 512, "image height in pixels")
	cmd.Flags().StringVar(&opts.Color, "color", "ring", "color scheme (ring|iq|bw)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runSlice(opts *SliceOptions, scenePath string, cmd *cobra.Command) error {
	format, err := sdfaux.ImageFormatFromFilename(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad output file", err)
	}
	if opts.Height < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid image height %d", opts.Height))
	}
	s, prog, err := loadScene(opts.RootOptions, scenePath)
	if err != nil {
		return err
	}
	box := s.Bounds.Box()
	var conv func(float32) color.Color
	switch opts.Color {
	case "ring":
		conv = sdfmesh.RingColor
	case "iq":
		conv = sdfaux.ColorConversionInigoQuilez(ms3.Norm(box.Size()) / 3)
	case "bw":
		// Gradient spans two pixels.
		conv = sdfaux.ColorConversionLinearGradient(2*box.Size().Y/float32(opts.Height), color.Black, color.White)
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid color %q: must be one of %v", opts.Color, ValidColors))
	}

	fp, err := os.Create(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "creating output file", err)
	}
	defer fp.Close()
	err = sdfaux.RenderProgram(cmd.Context(), prog, sdfaux.RenderConfig{
		Bounds:      box,
		SliceOutput: fp,
		SliceFormat: format,
		SliceHeight: opts.Height,
		SliceColor:  conv,
		Logger:      opts.Logger().With("scene", s.Name),
	})
	if err != nil {
		return WrapExitError(ExitFailure, "rendering slice of "+s.Name, err)
	}
	if err = fp.Close(); err != nil {
		return WrapExitError(ExitFailure, "closing output file", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s slice of %s to %s\n", format, s.Name, opts.Output)
	return nil
}
