package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"gocv.io/x/gocv"

	"plate-registry/internal/domain/plate"
)

// Recognizer turns an encoded single-line image into text.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

type PlateReader struct {
	recognizer Recognizer
}

func NewPlateReader(recognizer Recognizer) *PlateReader {
	return &PlateReader{recognizer: recognizer}
}

// Read recognizes the text inside region of a grayscale image. An empty crop
// yields "" without touching the engine. Only surrounding whitespace is
// stripped from the engine output.
func (r *PlateReader) Read(ctx context.Context, gray gocv.Mat, region plate.Region) (string, error) {
	if gray.Empty() || region.Empty() {
		return "", nil
	}

	rect := region.Rect().Intersect(boundsOf(gray))
	if rect.Empty() {
		return "", nil
	}

	crop := gray.Region(rect)
	defer crop.Close()

	return r.ReadCrop(ctx, crop)
}

// ReadCrop recognizes an already cropped image.
func (r *PlateReader) ReadCrop(ctx context.Context, crop gocv.Mat) (string, error) {
	if crop.Empty() || crop.Cols() == 0 || crop.Rows() == 0 {
		return "", nil
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, crop)
	if err != nil {
		return "", fmt.Errorf("encode plate crop: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	text, err := r.recognizer.Recognize(ctx, data)
	if err != nil {
		return "", fmt.Errorf("recognize plate text: %w", err)
	}

	return strings.TrimSpace(text), nil
}

func boundsOf(m gocv.Mat) image.Rectangle {
	return image.Rect(0, 0, m.Cols(), m.Rows())
}
