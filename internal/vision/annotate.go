package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"plate-registry/internal/domain/plate"
)

var (
	highlightColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
)

const (
	highlightThickness = 3
	labelScale         = 0.9
	labelThickness     = 2
	labelOffset        = 10
)

// Annotate draws the region outline and the recognized text onto a copy of
// img. The returned image has the dimensions of img.
func Annotate(img gocv.Mat, region plate.Region, label string) (image.Image, error) {
	if img.Empty() {
		return nil, fmt.Errorf("annotate: empty image")
	}

	canvas := img.Clone()
	defer canvas.Close()

	if canvas.Channels() == 1 {
		gocv.CvtColor(img, &canvas, gocv.ColorGrayToBGR)
	}

	gocv.Rectangle(&canvas, region.Rect(), highlightColor, highlightThickness)
	if label != "" {
		origin := image.Pt(region.X, region.Y-labelOffset)
		gocv.PutText(&canvas, label, origin, gocv.FontHersheySimplex, labelScale, highlightColor, labelThickness)
	}

	out, err := canvas.ToImage()
	if err != nil {
		return nil, fmt.Errorf("annotate: convert to image: %w", err)
	}
	return out, nil
}

// DecodeImage decodes any raster format imaging understands, applying EXIF
// orientation, into a BGR Mat. The caller owns the Mat when err is nil.
func DecodeImage(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, fmt.Errorf("decode image: empty payload")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("decode image: %w", err)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("convert image: %w", err)
	}
	return mat, nil
}

// EncodePNG encodes an annotated image for transport or storage.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
