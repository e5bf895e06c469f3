package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/swdee/go-facewatch/config"
	"github.com/swdee/go-facewatch/verify"
	"gocv.io/x/gocv"
)

// ErrImageNotFound is returned when the image to verify can not be read
var ErrImageNotFound = errors.New("image to verify not found")

var verifyCmd = &cobra.Command{
	Use:   "verify <image>",
	Short: "Verify a single image against the reference and print the verdict",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, err := config.Load(configPath)

		if err != nil {
			return err
		}

		return verifyImage(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// verifyImage compares the image at path against the configured reference
// and returns an error unless it matches
func verifyImage(ctx context.Context, cfg *config.Config, path string, out io.Writer) error {

	reference, err := verify.LoadReference(cfg.Reference.Path)

	if err != nil {
		return err
	}

	comparer, err := newComparer(cfg.Verify)

	if err != nil {
		reference.Close()
		return err
	}

	verifier := verify.New(comparer, reference, newPolicy(cfg.Verify))
	defer verifier.Close()

	img, err := loadImage(path)

	if err != nil {
		return err
	}
	defer img.Close()

	v := verifier.Verify(ctx, img)

	switch {
	case v.HasDistance:
		fmt.Fprintf(out, "%s distance=%.4f\n", v.Outcome, v.Distance)
	case v.Err != nil:
		fmt.Fprintf(out, "%s: %v\n", v.Outcome, v.Err)
	default:
		fmt.Fprintln(out, v.Outcome)
	}

	if !v.Verified {
		return fmt.Errorf("image %s does not match reference", path)
	}

	return nil
}

// loadImage reads the image to verify from path
func loadImage(path string) (gocv.Mat, error) {

	img := gocv.IMRead(path, gocv.IMReadColor)

	if img.Empty() {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("%w: %s", ErrImageNotFound, path)
	}

	return img, nil
}
