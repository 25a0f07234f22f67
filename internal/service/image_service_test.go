package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"product-catalog/internal/media"
	"product-catalog/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySource struct {
	name string
	data []byte
}

func (s memorySource) Filename() string { return s.name }
func (s memorySource) Size() int64      { return int64(len(s.data)) }
func (s memorySource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

type stubEncoder struct {
	ext string
	err error
}

func (e stubEncoder) Ext() string { return e.ext }

func (e stubEncoder) Encode(w io.Writer, _ image.Image) error {
	if e.err != nil {
		return e.err
	}
	_, err := w.Write([]byte(e.ext))
	return err
}

func pngSource(t *testing.T, name string) memorySource {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return memorySource{name: name, data: buf.Bytes()}
}

func newTestImageService(t *testing.T, avifErr error, limits UploadLimits) (ImageService, *media.DiskStore, *metrics.Metrics) {
	t.Helper()
	disk := newTestDisk(t)
	m := metrics.New()
	generator := media.NewGenerator(stubEncoder{ext: ".webp"}, stubEncoder{ext: ".avif", err: avifErr})
	return NewImageService(disk, generator, limits, m, zap.NewNop()), disk, m
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestImageService_UploadProducesVariants(t *testing.T) {
	svc, disk, m := newTestImageService(t, nil, UploadLimits{MaxFiles: 12, MaxFileSize: 1 << 20, Workers: 2})

	out, err := svc.Upload(context.Background(), []media.Source{
		pngSource(t, "front.png"),
		pngSource(t, "back.PNG"),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)

	for _, v := range out {
		assert.Equal(t, "/public/images/products/", v.Path)
		assert.True(t, strings.HasPrefix(v.Original, "/public/images/products/images-"), v.Original)
		assert.True(t, strings.HasSuffix(v.Original, ".png"))
		assert.Equal(t, strings.TrimSuffix(v.Original, ".png")+".webp", v.WebP)
		assert.Equal(t, strings.TrimSuffix(v.Original, ".png")+".avif", v.AVIF)
		for _, p := range v.Files() {
			assert.True(t, disk.Exists(p), p)
		}
	}
	assert.NotEqual(t, out[0].Original, out[1].Original)
	assert.Len(t, listDir(t, disk.Dir()), 6)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VariantsGenerated.WithLabelValues("webp")))
}

func TestImageService_UploadRejectsBeforeWriting(t *testing.T) {
	tests := []struct {
		name    string
		sources func(t *testing.T) []media.Source
		wantErr error
	}{
		{
			name:    "no files",
			sources: func(t *testing.T) []media.Source { return nil },
			wantErr: media.ErrNoFiles,
		},
		{
			name: "too many files",
			sources: func(t *testing.T) []media.Source {
				return []media.Source{pngSource(t, "a.png"), pngSource(t, "b.png"), pngSource(t, "c.png")}
			},
			wantErr: media.ErrTooManyFiles,
		},
		{
			name: "file too large",
			sources: func(t *testing.T) []media.Source {
				return []media.Source{memorySource{name: "big.png", data: make([]byte, 2048)}}
			},
			wantErr: media.ErrFileTooLarge,
		},
		{
			name: "text disguised as png",
			sources: func(t *testing.T) []media.Source {
				return []media.Source{pngSource(t, "ok.png"), memorySource{name: "evil.png", data: []byte("plain text, not an image")}}
			},
			wantErr: media.ErrUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, disk, _ := newTestImageService(t, nil, UploadLimits{MaxFiles: 2, MaxFileSize: 1024, Workers: 1})

			_, err := svc.Upload(context.Background(), tt.sources(t))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, listDir(t, disk.Dir()))
		})
	}
}

func TestImageService_UploadCleansUpOnEncodeFailure(t *testing.T) {
	svc, disk, m := newTestImageService(t, errors.New("encoder crashed"), UploadLimits{MaxFiles: 12, MaxFileSize: 1 << 20, Workers: 4})

	_, err := svc.Upload(context.Background(), []media.Source{
		pngSource(t, "one.png"),
		pngSource(t, "two.png"),
		pngSource(t, "three.png"),
	})
	require.Error(t, err)

	assert.Empty(t, listDir(t, disk.Dir()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadFailures))
}

func TestImageService_SavedNamesStayInsideStore(t *testing.T) {
	svc, disk, _ := newTestImageService(t, nil, UploadLimits{MaxFiles: 1, MaxFileSize: 1 << 20})

	out, err := svc.Upload(context.Background(), []media.Source{pngSource(t, "../../escape.png")})
	require.NoError(t, err)
	require.Len(t, out, 1)

	fsPath, err := disk.Resolve(out[0].Original)
	require.NoError(t, err)
	assert.Equal(t, disk.Dir(), filepath.Dir(fsPath))
}
