package media

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// pngHeader is a PNG signature plus an IHDR chunk claiming w x h pixels.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 0, 17)
	ihdr = append(ihdr, "IHDR"...)
	ihdr = binary.BigEndian.AppendUint32(ihdr, w)
	ihdr = binary.BigEndian.AppendUint32(ihdr, h)
	ihdr = append(ihdr, 8, 0, 0, 0, 0) // 8-bit grayscale

	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, ihdr...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(ihdr))
}

func TestProcessRejectsHugeDimensions(t *testing.T) {
	p := NewProcessor(5<<20, 85)

	_, err := p.Process(bytes.NewReader(pngHeader(100_000, 100_000)))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestProcessHonoursMaxPixels(t *testing.T) {
	p := NewProcessor(5<<20, 85).WithMaxPixels(20 * 20)

	_, err := p.Process(bytes.NewReader(pngBytes(t, 21, 20)))
	assert.ErrorIs(t, err, ErrTooLarge)

	res, err := p.Process(bytes.NewReader(pngBytes(t, 20, 20)))
	require.NoError(t, err)
	assert.Equal(t, 20, res.Original().Width)
}

func TestWithMaxPixelsIgnoresNonPositive(t *testing.T) {
	assert.Equal(t, int64(DefaultMaxPixels), NewProcessor(1, 85).WithMaxPixels(0).maxPixels)
}

func TestProcessRendersVariants(t *testing.T) {
	p := NewProcessor(5<<20, 85)
	res, err := p.Process(bytes.NewReader(pngBytes(t, 800, 400)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.SourceType)

	sizes := map[string][2]int{}
	for _, v := range res.Variants {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(v.Data))
		require.NoError(t, err, v.Name)
		sizes[v.Name] = [2]int{cfg.Width, cfg.Height}
	}
	assert.Equal(t, [2]int{800, 400}, sizes[models.VariantOriginal])
	assert.Equal(t, [2]int{150, 150}, sizes[models.VariantThumbnail])
	assert.Equal(t, [2]int{600, 300}, sizes[models.VariantMedium])
	assert.Equal(t, [2]int{800, 400}, sizes[models.VariantLarge])
	assert.Equal(t, 800, res.Original().Width)
}

func TestProcessOnPoolKeepsSizeOrder(t *testing.T) {
	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	p := NewProcessor(5<<20, 85).WithPool(pool)
	res, err := p.Process(bytes.NewReader(pngBytes(t, 1600, 800)))
	require.NoError(t, err)

	var names []string
	for _, v := range res.Variants {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{models.VariantOriginal, models.VariantThumbnail, models.VariantMedium, models.VariantLarge}, names)
	assert.Equal(t, 1200, res.Variants[3].Width)
}

func TestProcessRejectsLargeFiles(t *testing.T) {
	p := NewProcessor(64, 85)
	_, err := p.Process(bytes.NewReader(pngBytes(t, 200, 200)))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestProcessRejectsNonImages(t *testing.T) {
	p := NewProcessor(1<<20, 85)
	_, err := p.Process(strings.NewReader("%PDF-1.4 not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestNewProcessorDefaultsQuality(t *testing.T) {
	assert.Equal(t, 85, NewProcessor(1, 0).quality)
	assert.Equal(t, 70, NewProcessor(1, 70).quality)
}
