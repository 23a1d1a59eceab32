package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktanaka/receipt-ledger/internal/common"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestNormalizeScalesDownLandscape(t *testing.T) {
	n := NewNormalizer(common.MediaConfig{MaxDimension: 100, JPEGQuality: 90}, nil)

	out, err := n.Normalize(context.Background(), encodePNG(t, 400, 200))
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestNormalizeScalesDownPortrait(t *testing.T) {
	n := NewNormalizer(common.MediaConfig{MaxDimension: 100, JPEGQuality: 90}, nil)

	out, err := n.Normalize(context.Background(), encodePNG(t, 200, 400))
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 50, w)
	assert.Equal(t, 100, h)
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	n := NewNormalizer(common.MediaConfig{MaxDimension: 1024, JPEGQuality: 90}, nil)

	out, err := n.Normalize(context.Background(), encodePNG(t, 80, 60))
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 80, w)
	assert.Equal(t, 60, h)
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	n := NewNormalizer(common.MediaConfig{}, nil)

	_, err := n.Normalize(context.Background(), []byte("not an image at all"))
	require.Error(t, err)

	var nerr *NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "decode", nerr.Stage)
}

func TestNormalizeHonorsCancellation(t *testing.T) {
	n := NewNormalizer(common.MediaConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := n.Normalize(ctx, encodePNG(t, 10, 10))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFitWithin(t *testing.T) {
	cases := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"landscape over bound", 2048, 1536, 1024, 1024, 768},
		{"portrait over bound", 1536, 2048, 1024, 768, 1024},
		{"square over bound", 2000, 2000, 1024, 1024, 1024},
		{"within bound untouched", 800, 600, 1024, 800, 600},
		{"exactly at bound", 1024, 512, 1024, 1024, 512},
		{"extreme aspect floors at one", 10000, 2, 100, 100, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotW, gotH := FitWithin(tc.w, tc.h, tc.max)
			assert.Equal(t, tc.wantW, gotW)
			assert.Equal(t, tc.wantH, gotH)
		})
	}
}
