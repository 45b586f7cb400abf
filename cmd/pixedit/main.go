// Command pixedit applies pixel filters to image files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/soypat/pixedit"
	"github.com/soypat/pixedit/filters"
	"github.com/soypat/pixedit/imageio"
	"golang.org/x/term"
)

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	err := run(os.Args[1], os.Args[2:], os.Stdout)
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		usage()
		os.Exit(2)
	} else if err != nil {
		fail(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: pixedit <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  grayscale  -in input.png -out output.png [-q 75] [-gpu] [-v]")
	fmt.Fprintln(os.Stderr, "  brightness -in input.png -out output.png -f 40 [-q 75] [-gpu] [-v]")
	fmt.Fprintln(os.Stderr, "  invert     -in input.png -out output.png [-q 75] [-gpu] [-v]")
	fmt.Fprintln(os.Stderr, "  curve      -in input.png -out output.png -points 0:0,0.5:0.7,1:1 [-q 75] [-v]")
	fmt.Fprintln(os.Stderr, "  info       -in input.png")
	fmt.Fprintln(os.Stderr, "Use -out - to write to stdout in the input's format.")
}

// commonFlags are shared by every filtering subcommand.
type commonFlags struct {
	in, out string
	quality int
	gpu     bool
	verbose bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.in, "in", "", "input image")
	fs.StringVar(&c.out, "out", "", "output image, format from extension, - for stdout")
	fs.IntVar(&c.quality, "q", imageio.DefaultJPEGQuality, "JPEG quality 1..100")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
}

// registerGPU adds -gpu for the commands a [filters.Backend] implements.
func (c *commonFlags) registerGPU(fs *flag.FlagSet) {
	fs.BoolVar(&c.gpu, "gpu", false, "run filters on the GPU when available")
}

func run(cmd string, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var c commonFlags
	c.register(fs)
	factor := 0
	points := ""
	switch cmd {
	case "info":
	case "grayscale", "invert":
		c.registerGPU(fs)
	case "brightness":
		c.registerGPU(fs)
		fs.IntVar(&factor, "f", 0, "brightness offset in -255..255")
	case "curve":
		fs.StringVar(&points, "points", "", "comma separated x:y control points in 0..1")
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.in == "" || (cmd != "info" && c.out == "") {
		return fmt.Errorf("%w: missing required arguments", errUsage)
	}
	if c.quality < 1 || c.quality > 100 {
		return fmt.Errorf("%w: quality %d outside 1..100", errUsage, c.quality)
	}
	setupLogging(c.verbose)

	backend, closeBackend := selectBackend(c.gpu)
	defer closeBackend()
	adapter := imageio.New(func(o *imageio.Options) {
		o.Backend = backend
		o.JPEGQuality = c.quality
	})
	img, err := adapter.Load(c.in)
	if err != nil {
		return err
	}

	switch cmd {
	case "info":
		fmt.Fprintf(stdout, "%s %dx%d\n", img.Format, img.Width(), img.Height())
		return nil
	case "grayscale":
		img, err = adapter.ApplyGrayscale(img)
	case "brightness":
		if factor < filters.MinBrightness || factor > filters.MaxBrightness {
			return fmt.Errorf("brightness %d outside %d..%d", factor, filters.MinBrightness, filters.MaxBrightness)
		}
		img, err = adapter.ApplyBrightness(img, factor)
	case "invert":
		img, err = adapter.ApplyInvert(img)
	case "curve":
		var pts []pixedit.CurvePoint
		pts, err = parseCurve(points)
		if err != nil {
			return err
		}
		var f *filters.PointFilter
		f, err = filters.NewCurvePerPixel(pts)
		if err != nil {
			return err
		}
		img, err = adapter.ApplyFilter(img, f)
	}
	if err != nil {
		return err
	}
	return write(adapter, img, c.out, stdout)
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	pixedit.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// selectBackend returns the GPU backend when requested and available, CPU otherwise.
func selectBackend(useGPU bool) (filters.Backend, func()) {
	if !useGPU {
		return filters.CPU{}, func() {}
	}
	gpu, err := filters.NewGPU()
	if err != nil {
		pixedit.Logger().Warn("gpu unavailable, using cpu", "err", err)
		return filters.CPU{}, func() {}
	}
	return gpu, gpu.Close
}

func write(adapter *imageio.Adapter, img *imageio.Image, out string, stdout io.Writer) error {
	if out != "-" {
		return adapter.Save(img, out)
	}
	if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return errors.New("refusing to write image data to a terminal")
	}
	format, err := imageio.FormatFromName(img.Format)
	if err != nil {
		format = imageio.FormatPNG
	}
	return adapter.Encode(stdout, img, format)
}

// parseCurve parses "x:y,x:y,..." into curve points.
func parseCurve(s string) ([]pixedit.CurvePoint, error) {
	if s == "" {
		return nil, errors.New("missing -points")
	}
	var pts []pixedit.CurvePoint
	for _, pair := range strings.Split(s, ",") {
		xs, ys, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("curve point %q not in x:y form", pair)
		}
		x, err := strconv.ParseFloat(xs, 32)
		if err != nil {
			return nil, fmt.Errorf("curve point %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(ys, 32)
		if err != nil {
			return nil, fmt.Errorf("curve point %q: %w", pair, err)
		}
		pts = append(pts, pixedit.CurvePoint{X: float32(x), Y: float32(y)})
	}
	return pts, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
