// Command bmpdecode converts a BMP file to PNG or prints its headers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/rcarmo/bmpview/internal/codec/bmp"
	"github.com/rcarmo/bmpview/internal/logging"
)

// Same defaults as the server's MAX_IMAGE_WIDTH and MAX_IMAGE_HEIGHT.
const (
	defaultMaxWidth  = 16384
	defaultMaxHeight = 16384
)

type options struct {
	in        string
	out       string
	info      bool
	logLevel  string
	maxWidth  int
	maxHeight int
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("bmpdecode", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.in, "in", "", "input BMP file")
	fs.StringVar(&opts.out, "out", "", "output PNG file (default: input name with .png)")
	fs.BoolVar(&opts.info, "info", false, "print the parsed headers instead of converting")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.IntVar(&opts.maxWidth, "max-width", defaultMaxWidth, "reject wider images (0 = no limit)")
	fs.IntVar(&opts.maxHeight, "max-height", defaultMaxHeight, "reject taller images (0 = no limit)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.in == "" {
		return options{}, errors.New("missing -in")
	}
	if opts.out == "" {
		opts.out = strings.TrimSuffix(opts.in, ".bmp") + ".png"
	}
	return opts, nil
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	logging.SetLevelFromString(opts.logLevel)

	data, err := os.ReadFile(opts.in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	if opts.info {
		hdr, err := bmp.DecodeConfig(data)
		if err != nil {
			return fmt.Errorf("%s: %w", opts.in, err)
		}
		printHeader(stdout, hdr)
		return nil
	}

	img, err := bmp.DecodeContext(context.Background(), data, bmp.Limits{
		MaxWidth:  opts.maxWidth,
		MaxHeight: opts.maxHeight,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", opts.in, err)
	}
	logging.Debug("decoded %s: %dx%d", opts.in, img.Width, img.Height)

	f, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	logging.Info("wrote %s (%dx%d)", opts.out, img.Width, img.Height)
	return nil
}

func printHeader(w io.Writer, hdr bmp.Header) {
	fmt.Fprintf(w, "size:         %dx%d\n", hdr.Info.Width, hdr.Info.Height)
	fmt.Fprintf(w, "bit count:    %d\n", hdr.Info.BitCount)
	fmt.Fprintf(w, "compression:  %s\n", hdr.Info.Compression)
	fmt.Fprintf(w, "colors used:  %d\n", hdr.Info.ColorsUsed)
	fmt.Fprintf(w, "image size:   %d\n", hdr.Info.SizeImage)
	fmt.Fprintf(w, "data offset:  %d\n", hdr.File.DataOffset)
}
