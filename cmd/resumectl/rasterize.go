package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"resume-review/internal/documents"
	"resume-review/internal/rasterize"
)

var rasterizeCmd = &cobra.Command{
	Use:   "rasterize <pdf>",
	Short: "Render the first page of a PDF to PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runRasterize,
}

var (
	rasterizeOut   string
	rasterizeScale float64
)

func init() {
	rasterizeCmd.Flags().StringVarP(&rasterizeOut, "out", "o", "", "output PNG path (default: input name with .png)")
	rasterizeCmd.Flags().Float64Var(&rasterizeScale, "scale", rasterize.DefaultScale, "render scale")
	rootCmd.AddCommand(rasterizeCmd)
}

func runRasterize(cmd *cobra.Command, args []string) error {
	in := args[0]
	if _, err := os.Stat(in); err != nil {
		return err
	}

	rz := rasterize.New(rasterize.NewLoader(rasterize.NewPDFEngine))
	rz.Scale = rasterizeScale
	res := rz.Rasterize(cmd.Context(), documents.DiskFile(in, "application/pdf"))
	if !res.OK() {
		return res.Err
	}
	defer res.Image.Release()

	out := rasterizeOut
	if out == "" {
		out = filepath.Join(filepath.Dir(in), res.File.Name())
	}
	if err := copyFile(res.Image.Path, out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%dx%d)\n", out, res.Image.Width, res.Image.Height)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
