// Command wpcdec decodes still WebP (VP8) images from the command line.
//
// Usage:
//
//	wpcdec [options] <input.webp>   WebP → PNG, PAM or raw YUV planes ("-" for stdin)
//	wpcdec info <input.webp>        Print picture dimensions
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	webpcore "github.com/pixelwerk/webpcore"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "info" {
		if err := runInfo(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "wpcdec: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := runDec(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "wpcdec: %v\n", err)
		os.Exit(1)
	}
}

// openInput returns a reader for path, with "-" meaning stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func runInfo(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: wpcdec info <input.webp>")
	}
	in, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	w, h, err := webpcore.GetInfo(data)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %dx%d (VP8 keyframe)\n", args[0], w, h)
	return nil
}

func runDec(args []string) error {
	fs := flag.NewFlagSet("wpcdec", flag.ExitOnError)
	out := fs.String("o", "", "output file (default: input with the format's extension, \"-\" for stdout)")
	format := fs.String("format", "png", "output format: png, pam or yuv")
	noFancy := fs.Bool("nofancy", false, "disable fancy chroma upsampling")
	noFilter := fs.Bool("nofilter", false, "bypass the in-loop filter")
	crop := fs.String("crop", "", "crop region as left,top,width,height (left/top even)")
	scale := fs.String("scale", "", "output scaling as width,height")
	incremental := fs.Int("incremental", 0, "feed the file N bytes at a time through the incremental decoder")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one input file expected")
	}

	in, err := openInput(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	opts := &webpcore.DecoderOptions{
		BypassFiltering:   *noFilter,
		NoFancyUpsampling: *noFancy,
	}
	if *crop != "" {
		if n, _ := fmt.Sscanf(*crop, "%d,%d,%d,%d",
			&opts.CropLeft, &opts.CropTop, &opts.CropWidth, &opts.CropHeight); n != 4 {
			return fmt.Errorf("bad -crop value %q", *crop)
		}
		opts.UseCropping = true
	}
	if *scale != "" {
		if n, _ := fmt.Sscanf(*scale, "%d,%d",
			&opts.ScaledWidth, &opts.ScaledHeight); n != 2 {
			return fmt.Errorf("bad -scale value %q", *scale)
		}
		opts.UseScaling = true
	}

	switch *format {
	case "png":
		return decPNG(data, fs.Arg(0), *out, opts, *incremental)
	case "pam":
		return decPAM(data, fs.Arg(0), *out, opts)
	case "yuv":
		return decYUV(data, fs.Arg(0), *out)
	}
	return fmt.Errorf("unknown -format %q", *format)
}

func decPNG(data []byte, inPath, outPath string, opts *webpcore.DecoderOptions, chunk int) error {
	var (
		pix          []byte
		w, h, stride int
	)
	if chunk > 0 {
		inc := webpcore.NewIncremental(webpcore.RGBA, opts)
		var status webpcore.Status
		for off := 0; off < len(data); off += chunk {
			end := off + chunk
			if end > len(data) {
				end = len(data)
			}
			status = inc.Append(data[off:end])
			if status != webpcore.StatusOk && status != webpcore.StatusSuspended {
				return status
			}
		}
		if status != webpcore.StatusOk {
			return webpcore.StatusNotEnoughData
		}
		pix, _, w, h, stride = inc.GetRGB()
	} else {
		img, err := webpcore.DecodeOptions(data, webpcore.RGBA, opts)
		if err != nil {
			return err
		}
		pix, w, h, stride = img.Pix, img.Width, img.Height, img.Stride
	}

	nrgba := &image.NRGBA{Pix: pix, Stride: stride, Rect: image.Rect(0, 0, w, h)}
	return writeOutput(inPath, outPath, ".png", func(f io.Writer) error {
		return png.Encode(f, nrgba)
	})
}

func decPAM(data []byte, inPath, outPath string, opts *webpcore.DecoderOptions) error {
	img, err := webpcore.DecodeOptions(data, webpcore.RGBA, opts)
	if err != nil {
		return err
	}
	return writeOutput(inPath, outPath, ".pam", func(f io.Writer) error {
		if _, err := fmt.Fprintf(f,
			"P7\nWIDTH %d\nHEIGHT %d\nDEPTH 4\nMAXVAL 255\nTUPLTYPE RGB_ALPHA\nENDHDR\n",
			img.Width, img.Height); err != nil {
			return err
		}
		for r := 0; r < img.Height; r++ {
			row := img.Pix[r*img.Stride : r*img.Stride+img.Width*4]
			if _, err := f.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func decYUV(data []byte, inPath, outPath string) error {
	img, err := webpcore.DecodeYUV(data)
	if err != nil {
		return err
	}
	return writeOutput(inPath, outPath, ".yuv", func(f io.Writer) error {
		for r := 0; r < img.Height; r++ {
			if _, err := f.Write(img.Y[r*img.YStride : r*img.YStride+img.Width]); err != nil {
				return err
			}
		}
		uvW := (img.Width + 1) / 2
		uvH := (img.Height + 1) / 2
		for _, plane := range [][]byte{img.U, img.V} {
			for r := 0; r < uvH; r++ {
				if _, err := f.Write(plane[r*img.UVStride : r*img.UVStride+uvW]); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func writeOutput(inPath, outPath, ext string, write func(io.Writer) error) error {
	if outPath == "" {
		outPath = strings.TrimSuffix(inPath, ".webp") + ext
	}
	if outPath == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
