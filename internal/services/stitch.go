package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"

	"bloom-backend/internal/apperr"

	"golang.org/x/image/draw"
)

const (
	stitchQuality = 90

	// DefaultMaxImageSide bounds the width and height of a raw photo
	DefaultMaxImageSide = 8192
)

// Stitch decodes two images and joins them side by side into one JPEG.
// The taller image is scaled down so both halves share the same height.
// Images wider or taller than maxSide pixels are rejected before decoding.
func Stitch(front, back []byte, maxSide int) ([]byte, error) {
	left, err := decodeBounded("front", front, maxSide)
	if err != nil {
		return nil, err
	}
	right, err := decodeBounded("back", back, maxSide)
	if err != nil {
		return nil, err
	}

	height := min(left.Bounds().Dy(), right.Bounds().Dy())
	if height == 0 {
		return nil, apperr.Validation("cannot stitch an empty image")
	}
	left = scaleToHeight(left, height)
	right = scaleToHeight(right, height)

	lw := left.Bounds().Dx()
	canvas := image.NewRGBA(image.Rect(0, 0, lw+right.Bounds().Dx(), height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(0, 0, lw, height), left, left.Bounds().Min, draw.Over)
	draw.Draw(canvas, image.Rect(lw, 0, canvas.Bounds().Dx(), height), right, right.Bounds().Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: stitchQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode stitched image: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeBounded reads the image header first so an oversized image is
// refused without allocating its pixels.
func decodeBounded(side string, data []byte, maxSide int) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation("failed to decode %s image: %v", side, err)
	}
	if maxSide > 0 && (cfg.Width > maxSide || cfg.Height > maxSide) {
		return nil, apperr.Validation("%s image is %dx%d, larger than %dx%d", side, cfg.Width, cfg.Height, maxSide, maxSide)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation("failed to decode %s image: %v", side, err)
	}
	return img, nil
}

// scaleToHeight resizes img keeping its aspect ratio
func scaleToHeight(img image.Image, height int) image.Image {
	b := img.Bounds()
	if b.Dy() == height {
		return img
	}
	width := max(1, b.Dx()*height/b.Dy())
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
