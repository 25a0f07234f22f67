package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"golang.org/x/sync/errgroup"
)

// Encoder writes an image in one target format
type Encoder interface {
	Ext() string
	Encode(w io.Writer, img image.Image) error
}

type WebPEncoder struct {
	Quality int
}

func (WebPEncoder) Ext() string { return ".webp" }

func (e WebPEncoder) Encode(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, webp.Options{Quality: e.Quality})
}

type AVIFEncoder struct {
	Quality int
	Speed   int
}

func (AVIFEncoder) Ext() string { return ".avif" }

func (e AVIFEncoder) Encode(w io.Writer, img image.Image) error {
	return avif.Encode(w, img, avif.Options{Quality: e.Quality, Speed: e.Speed})
}

// Variants holds the filesystem paths produced for one source image
type Variants struct {
	Original string
	WebP     string
	AVIF     string
	Dir      string
}

// Files lists every file of the set, skipping blanks
func (v Variants) Files() []string {
	files := make([]string, 0, 3)
	for _, p := range []string{v.Original, v.WebP, v.AVIF} {
		if p != "" {
			files = append(files, p)
		}
	}
	return files
}

// Generator derives the WebP and AVIF siblings of an uploaded image
type Generator struct {
	webp Encoder
	avif Encoder
}

func NewGenerator(webpEncoder, avifEncoder Encoder) *Generator {
	return &Generator{webp: webpEncoder, avif: avifEncoder}
}

// Generate decodes sourcePath and writes <base>.webp and <base>.avif into destDir, where
// base is sourceName without its extension. On failure no variant file is left behind;
// the source itself belongs to the caller.
func (g *Generator) Generate(ctx context.Context, sourcePath, sourceName, destDir string) (Variants, error) {
	img, err := decode(sourcePath)
	if err != nil {
		return Variants{}, err
	}

	base := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	v := Variants{
		Original: sourcePath,
		WebP:     filepath.Join(destDir, base+g.webp.Ext()),
		AVIF:     filepath.Join(destDir, base+g.avif.Ext()),
		Dir:      destDir,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return encodeTo(egCtx, g.webp, img, v.WebP) })
	eg.Go(func() error { return encodeTo(egCtx, g.avif, img, v.AVIF) })
	if err := eg.Wait(); err != nil {
		os.Remove(v.WebP)
		os.Remove(v.AVIF)
		return Variants{}, fmt.Errorf("failed to generate variants of %s: %w", sourceName, err)
	}

	return v, nil
}

func decode(sourcePath string) (image.Image, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source image: %w", err)
	}
	defer f.Close()

	contentType, err := DetectType(f)
	if err != nil {
		return nil, err
	}
	if !IsAllowedType(contentType) {
		return nil, fmt.Errorf("%s: %w", contentType, ErrUnsupportedMediaType)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind source image: %w", err)
	}

	var img image.Image
	if contentType == "image/png" {
		img, err = png.Decode(bufio.NewReader(f))
	} else {
		img, err = jpeg.Decode(bufio.NewReader(f))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}
	return img, nil
}

func encodeTo(ctx context.Context, enc Encoder, img image.Image, target string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(target), err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
		if err != nil {
			os.Remove(target)
		}
	}()

	w := bufio.NewWriter(f)
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("%s encode failed: %w", strings.TrimPrefix(enc.Ext(), "."), err)
	}
	return w.Flush()
}
