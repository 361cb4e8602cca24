// Package media validates uploaded images and renders their size variants.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"slices"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/panjf2000/ants/v2"
	_ "golang.org/x/image/webp" // registers the webp decoder

	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
)

var (
	ErrTooLarge        = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// AllowedTypes are the accepted upload MIME types, sniffed from content.
var AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// OutputType is the MIME type of every stored variant.
const OutputType = "image/jpeg"

// DefaultMaxPixels bounds width*height of a decoded upload.
const DefaultMaxPixels = 40_000_000

// Size bounds one variant. Height 0 keeps the aspect ratio; Crop fills the
// exact box.
type Size struct {
	Name   string
	Width  int
	Height int
	Crop   bool
}

// DefaultSizes are rendered next to the original for every upload.
var DefaultSizes = []Size{
	{Name: models.VariantThumbnail, Width: 150, Height: 150, Crop: true},
	{Name: models.VariantMedium, Width: 600},
	{Name: models.VariantLarge, Width: 1200},
}

// Variant is one encoded image.
type Variant struct {
	Name   string
	Data   []byte
	Width  int
	Height int
}

// Result is the outcome of processing one upload.
type Result struct {
	SourceType string
	Variants   []Variant
}

// Original returns the full-size variant.
func (r *Result) Original() Variant {
	for _, v := range r.Variants {
		if v.Name == models.VariantOriginal {
			return v
		}
	}
	return Variant{}
}

// Processor turns an upload into JPEG variants.
type Processor struct {
	maxBytes  int64
	maxPixels int64
	quality   int
	sizes     []Size
	pool      *ants.Pool // Optional: bounds concurrent resizes across uploads (nil = serial)
}

func NewProcessor(maxBytes int64, quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Processor{maxBytes: maxBytes, maxPixels: DefaultMaxPixels, quality: quality, sizes: DefaultSizes}
}

// WithMaxPixels overrides DefaultMaxPixels. n <= 0 keeps the current bound.
func (p *Processor) WithMaxPixels(n int64) *Processor {
	if n > 0 {
		p.maxPixels = n
	}
	return p
}

// WithPool renders the sizes of an upload as tasks on pool.
func (p *Processor) WithPool(pool *ants.Pool) *Processor {
	p.pool = pool
	return p
}

// Process reads at most maxBytes from r, checks the sniffed type and
// encodes the original plus every configured size.
func (p *Processor) Process(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	if !slices.Contains(AllowedTypes, mt.String()) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	// The header is enough to refuse decompression bombs before allocating.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedType)
	}
	if int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	img = flatten(img)

	res := &Result{SourceType: mt.String()}
	original, err := p.encode(models.VariantOriginal, img)
	if err != nil {
		return nil, err
	}
	res.Variants = append(res.Variants, original)

	sized, err := p.renderSizes(img)
	if err != nil {
		return nil, err
	}
	res.Variants = append(res.Variants, sized...)
	return res, nil
}

// renderSizes encodes every configured size, keeping their order.
func (p *Processor) renderSizes(img image.Image) ([]Variant, error) {
	out := make([]Variant, len(p.sizes))
	errs := make([]error, len(p.sizes))
	if p.pool == nil {
		for i, s := range p.sizes {
			out[i], errs[i] = p.encode(s.Name, resize(img, s))
		}
		return out, errors.Join(errs...)
	}

	var wg sync.WaitGroup
	for i, s := range p.sizes {
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			out[i], errs[i] = p.encode(s.Name, resize(img, s))
		}); err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("failed to schedule %s: %w", s.Name, err)
		}
	}
	wg.Wait()
	return out, errors.Join(errs...)
}

func (p *Processor) encode(name string, img image.Image) (Variant, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return Variant{}, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	b := img.Bounds()
	return Variant{Name: name, Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// resize never upscales except for cropped sizes.
func resize(img image.Image, s Size) image.Image {
	if s.Crop {
		return imaging.Fill(img, s.Width, s.Height, imaging.Center, imaging.Lanczos)
	}
	if img.Bounds().Dx() <= s.Width {
		return img
	}
	return imaging.Resize(img, s.Width, s.Height, imaging.Lanczos)
}

// flatten draws img over white so transparent areas stay white in JPEG.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
