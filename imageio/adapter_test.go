package imageio

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/soypat/pixedit"
)

// writePNG writes img as a PNG file in dir and returns its path.
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func redPixel() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	return img
}

// countingBackend records calls and delegates nothing.
type countingBackend struct{ calls int }

func (b *countingBackend) Grayscale(*pixedit.RGB) error       { b.calls++; return nil }
func (b *countingBackend) Brightness(*pixedit.RGB, int) error { b.calls++; return nil }
func (b *countingBackend) Invert(*pixedit.RGB) error          { b.calls++; return nil }

func TestRoundTripLossless(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, "red.png", redPixel())
	a := New()

	img, err := a.Load(in)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{255, 0, 0}, img.RGB.Pix); diff != "" {
		t.Fatalf("decoded pixel (-want +got):\n%s", diff)
	}
	gray, err := a.ApplyGrayscale(img)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{85, 85, 85}, gray.RGB.Pix); diff != "" {
		t.Fatalf("grayscale (-want +got):\n%s", diff)
	}
	if img.RGB.Pix[0] != 255 {
		t.Error("ApplyGrayscale modified its input")
	}

	for _, ext := range []string{".png", ".bmp", ".tiff"} {
		t.Run(ext, func(t *testing.T) {
			out := filepath.Join(dir, "gray"+ext)
			if err := a.Save(gray, out); err != nil {
				t.Fatal(err)
			}
			back, err := a.Load(out)
			if err != nil {
				t.Fatal(err)
			}
			if back.Width() != 1 || back.Height() != 1 {
				t.Fatalf("dims %dx%d, want 1x1", back.Width(), back.Height())
			}
			if diff := cmp.Diff([]byte{85, 85, 85}, back.RGB.Pix); diff != "" {
				t.Errorf("reloaded (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTripJPEG(t *testing.T) {
	dir := t.TempDir()
	a := New(func(o *Options) { o.JPEGQuality = 95 })
	img, err := a.Load(writePNG(t, dir, "red.png", redPixel()))
	if err != nil {
		t.Fatal(err)
	}
	gray, err := a.ApplyGrayscale(img)
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "gray.jpg")
	if err := a.Save(gray, out); err != nil {
		t.Fatal(err)
	}
	back, err := a.Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if back.Format != "jpeg" {
		t.Errorf("format %q, want jpeg", back.Format)
	}
	const tolerance = 4
	for c, v := range back.RGB.Pix {
		if d := int(v) - 85; d < -tolerance || d > tolerance {
			t.Errorf("channel %d = %d, want 85±%d", c, v, tolerance)
		}
	}
}

func TestBrightnessNonReversible(t *testing.T) {
	a := New()
	img := &Image{RGB: &pixedit.RGB{Width: 1, Height: 1, Pix: []byte{200, 200, 200}}}
	up, err := a.ApplyBrightness(img, 100)
	if err != nil {
		t.Fatal(err)
	}
	down, err := a.ApplyBrightness(up, -100)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{155, 155, 155}, down.RGB.Pix); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{200, 200, 200}, img.RGB.Pix); diff != "" {
		t.Errorf("input modified (-want +got):\n%s", diff)
	}
	same, err := a.ApplyBrightness(img, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(img.RGB.Pix, same.RGB.Pix); diff != "" {
		t.Errorf("zero factor (-want +got):\n%s", diff)
	}
}

func TestBufferSizeRejectedBeforeKernel(t *testing.T) {
	backend := &countingBackend{}
	a := New(func(o *Options) { o.Backend = backend })
	bad := []*pixedit.RGB{
		{Width: 2, Height: 2, Pix: make([]byte, 11)},
		{Width: 2, Height: 2, Pix: make([]byte, 13)},
		{Width: 0, Height: 2, Pix: nil},
		{Width: 3, Height: 1, Pix: make([]byte, 3)},
	}
	for _, rgb := range bad {
		img := &Image{RGB: rgb}
		if _, err := a.ApplyGrayscale(img); err == nil {
			t.Errorf("ApplyGrayscale accepted %dx%d with %d bytes", rgb.Width, rgb.Height, len(rgb.Pix))
		}
		if _, err := a.ApplyBrightness(img, 10); err == nil {
			t.Errorf("ApplyBrightness accepted %dx%d with %d bytes", rgb.Width, rgb.Height, len(rgb.Pix))
		}
		if _, err := a.ApplyInvert(img); err == nil {
			t.Errorf("ApplyInvert accepted %dx%d with %d bytes", rgb.Width, rgb.Height, len(rgb.Pix))
		}
	}
	_, err := a.ApplyGrayscale(&Image{RGB: bad[0]})
	if !errors.Is(err, pixedit.ErrBufferSize) {
		t.Errorf("got %v, want ErrBufferSize", err)
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times with invalid buffers", backend.calls)
	}
	if _, err := a.ApplyGrayscale(nil); err == nil {
		t.Error("ApplyGrayscale(nil) succeeded")
	}
}

func TestApplyInvert(t *testing.T) {
	a := New()
	img := &Image{RGB: &pixedit.RGB{Width: 2, Height: 1, Pix: []byte{0, 10, 255, 128, 127, 1}}, Format: "png"}
	inv, err := a.ApplyInvert(img)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{255, 245, 0, 127, 128, 254}, inv.RGB.Pix); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if inv.Format != "png" || inv.Width() != 2 || inv.Height() != 1 {
		t.Errorf("got %s %dx%d, want png 2x1", inv.Format, inv.Width(), inv.Height())
	}
	if img.RGB.Pix[0] != 0 {
		t.Error("ApplyInvert modified its input")
	}
}

func TestSaveKeepsExistingMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "private.png")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}
	a := New()
	img := &Image{RGB: &pixedit.RGB{Width: 1, Height: 1, Pix: []byte{1, 2, 3}}}
	if err := a.Save(img, path); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode after overwrite = %v, want 0600", perm)
	}
	back, err := a.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, back.RGB.Pix); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	fresh := filepath.Join(dir, "fresh.png")
	if err := a.Save(img, fresh); err != nil {
		t.Fatal(err)
	}
	info, err = os.Stat(fresh)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&^0o644 != 0 {
		t.Errorf("new file mode %v grants more than 0644", perm)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("want only the two saved files, got %v", entries)
	}
}

func TestSaveFailureKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.png")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := &Image{RGB: &pixedit.RGB{Width: 2, Height: 2, Pix: make([]byte, 5)}}
	if err := New().Save(bad, path); err == nil {
		t.Fatal("saved invalid buffer")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "old" {
		t.Errorf("existing file changed to %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	a := New()

	_, err := a.Load(filepath.Join(dir, "missing.png"))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("got %T %v, want *DecodeError", err, err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error does not wrap fs.ErrNotExist: %v", err)
	}

	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = a.Load(garbage)
	if !errors.As(err, &de) || de.Path != garbage {
		t.Fatalf("got %v, want *DecodeError for %s", err, garbage)
	}
}

func TestSaveErrors(t *testing.T) {
	dir := t.TempDir()
	a := New()
	img := &Image{RGB: &pixedit.RGB{Width: 1, Height: 1, Pix: []byte{1, 2, 3}}}

	err := a.Save(img, filepath.Join(dir, "out.webp"))
	var ee *EncodeError
	if !errors.As(err, &ee) || !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("webp: got %v, want EncodeError wrapping ErrUnsupportedFormat", err)
	}

	err = a.Save(img, filepath.Join(dir, "no", "such", "dir.png"))
	if !errors.As(err, &ee) {
		t.Errorf("bad dir: got %v, want *EncodeError", err)
	}

	bad := &Image{RGB: &pixedit.RGB{Width: 2, Height: 1, Pix: []byte{1, 2, 3}}}
	if err := a.Save(bad, filepath.Join(dir, "bad.png")); !errors.Is(err, pixedit.ErrBufferSize) {
		t.Errorf("bad buffer: got %v, want ErrBufferSize", err)
	}

	if diff := cmp.Diff([]byte{1, 2, 3}, img.RGB.Pix); diff != "" {
		t.Errorf("failed save modified image:\n%s", diff)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed saves left files behind: %v", entries)
	}
}

func TestDecodeDropsAlpha(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 128, G: 0, B: 0, A: 128}) // Premultiplied half transparent red.
	src.SetRGBA(1, 0, color.RGBA{})                           // Fully transparent.
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	img, err := New().Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{255, 0, 0, 0, 0, 0}, img.RGB.Pix); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDecodeGrayAndPaletted(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.Pix = []byte{0, 10, 200, 255}
	pal := image.NewPaletted(image.Rect(0, 0, 1, 1), color.Palette{color.RGBA{R: 1, G: 2, B: 3, A: 255}})

	tests := []struct {
		name string
		img  image.Image
		want []byte
	}{
		{"gray", gray, []byte{0, 0, 0, 10, 10, 10, 200, 200, 200, 255, 255, 255}},
		{"paletted", pal, []byte{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := png.Encode(&buf, tt.img); err != nil {
				t.Fatal(err)
			}
			img, err := New().Decode(&buf)
			if err != nil {
				t.Fatal(err)
			}
			if err := img.RGB.Validate(); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, img.RGB.Pix); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.png", FormatPNG},
		{"a.PNG", FormatPNG},
		{"dir.d/a.jpg", FormatJPEG},
		{"a.jpeg", FormatJPEG},
		{"a.gif", FormatGIF},
		{"a.bmp", FormatBMP},
		{"a.tif", FormatTIFF},
		{"a.tiff", FormatTIFF},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if err != nil || got != tt.want {
			t.Errorf("FormatFromPath(%q) = %v, %v; want %v", tt.path, got, err, tt.want)
		}
	}
	for _, path := range []string{"a", "a.webp", "a.png.txt"} {
		if _, err := FormatFromPath(path); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("FormatFromPath(%q) error = %v, want ErrUnsupportedFormat", path, err)
		}
	}
}

func TestFormatFromName(t *testing.T) {
	for _, f := range []Format{FormatPNG, FormatJPEG, FormatGIF, FormatBMP, FormatTIFF} {
		got, err := FormatFromName(f.String())
		if err != nil || got != f {
			t.Errorf("FormatFromName(%q) = %v, %v; want %v", f.String(), got, err, f)
		}
	}
	for _, name := range []string{"", "webp", "unknown"} {
		if _, err := FormatFromName(name); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("FormatFromName(%q) error = %v, want ErrUnsupportedFormat", name, err)
		}
	}
	if FormatUnknown.String() != "unknown" || FormatJPEG.String() != "jpeg" {
		t.Errorf("String: %q %q", FormatUnknown, FormatJPEG)
	}
	var buf bytes.Buffer
	img := &Image{RGB: &pixedit.RGB{Width: 1, Height: 1, Pix: []byte{1, 2, 3}}}
	if err := New().Encode(&buf, img, FormatUnknown); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Encode(FormatUnknown) = %v, want ErrUnsupportedFormat", err)
	}
}

func TestAdapterLogs(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := New(func(o *Options) { o.Logger = logger })
	dir := t.TempDir()
	img, err := a.Load(writePNG(t, dir, "red.png", redPixel()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.ApplyBrightness(img, 5); err != nil {
		t.Fatal(err)
	}
	for _, msg := range []string{"image loaded", "op=brightness"} {
		if !strings.Contains(logs.String(), msg) {
			t.Errorf("log output missing %q:\n%s", msg, logs.String())
		}
	}
}
