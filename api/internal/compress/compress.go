// Package compress bounds a photo's payload size before network transit:
// decode, downscale to the profile width, re-encode as JPEG, base64.
package compress

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"calorie-lens/api/internal/config"
)

// Compress is best effort: any decode or encode failure returns the base64 of
// the original bytes instead of failing the pipeline.
func Compress(data []byte, p config.Profile) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return base64.StdEncoding.EncodeToString(data), nil
	}

	img = scaleDown(img, p.MaxWidth())

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.JPEGQuality()}); err != nil {
		return base64.StdEncoding.EncodeToString(data), nil
	}

	// Re-encoding a small, already efficient JPEG can grow it.
	if buf.Len() >= len(data) {
		return base64.StdEncoding.EncodeToString(data), nil
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func scaleDown(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxWidth || w == 0 {
		return img
	}
	nh := h * maxWidth / w
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
