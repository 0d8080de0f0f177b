package qcreport

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// maxRasterDim caps the pixel dimensions when rasterizing, a runaway
// viewBox would otherwise allocate gigabytes for the RGBA buffer.
const maxRasterDim = 8192

// RasterizeImage renders plot SVG to an RGBA image on a white background.
// Zero target dimensions keep the SVG's intrinsic size; a single non-zero
// one scales preserving aspect ratio; both non-zero fit into the box.
func RasterizeImage(svgData []byte, targetW, targetH int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, err
	}

	intrW := int(math.Ceil(icon.ViewBox.W))
	intrH := int(math.Ceil(icon.ViewBox.H))
	if intrW <= 0 || intrH <= 0 {
		intrW, intrH = 800, 600
	}

	w, h := intrW, intrH
	switch {
	case targetW <= 0 && targetH <= 0:
		// intrinsic size
	case targetW > 0 && targetH <= 0:
		w = targetW
		h = int(math.Round(float64(w) * float64(intrH) / float64(intrW)))
	case targetH > 0 && targetW <= 0:
		h = targetH
		w = int(math.Round(float64(h) * float64(intrW) / float64(intrH)))
	default:
		s := math.Min(float64(targetW)/float64(intrW), float64(targetH)/float64(intrH))
		w = int(math.Round(float64(intrW) * s))
		h = int(math.Round(float64(intrH) * s))
	}
	w, h = max(w, 1), max(h, 1)
	if w > maxRasterDim || h > maxRasterDim {
		s := math.Min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return dst, nil
}

// RasterizePNG renders plot SVG straight to PNG bytes.
func RasterizePNG(svgData []byte, targetW, targetH int) ([]byte, error) {
	img, err := RasterizeImage(svgData, targetW, targetH)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

// EncodePNG serializes an already rendered plot image.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Thumbnail scales a rendered plot down to the given width preserving
// aspect ratio.
func Thumbnail(img image.Image, width int) ([]byte, error) {
	small := imaging.Resize(img, width, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, small, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
