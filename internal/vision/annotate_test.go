package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"plate-registry/internal/domain/plate"
)

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestAnnotate(t *testing.T) {
	img := blankImage(t, 320, 240)
	region := plate.Region{X: 60, Y: 100, Width: 120, Height: 40}

	out, err := Annotate(img, region, "ABC123")
	require.NoError(t, err)

	assert.Equal(t, 320, out.Bounds().Dx())
	assert.Equal(t, 240, out.Bounds().Dy())

	green := color.RGBA{R: 0, G: 255, B: 0, A: 255}
	assert.Equal(t, green, rgbaAt(out, region.X, region.Y+region.Height/2), "left edge")
	assert.Equal(t, green, rgbaAt(out, region.X+region.Width, region.Y+region.Height/2), "right edge")
	assert.Equal(t, green, rgbaAt(out, region.X+region.Width/2, region.Y), "top edge")
	assert.Equal(t, green, rgbaAt(out, region.X+region.Width/2, region.Y+region.Height), "bottom edge")

	black := color.RGBA{A: 255}
	assert.Equal(t, black, rgbaAt(out, region.X+region.Width/2, region.Y+region.Height/2), "interior untouched")
	assert.Equal(t, black, rgbaAt(out, region.X-6, region.Y+region.Height/2), "outside untouched")

	// the source image is never modified
	assert.Equal(t, uint8(0), img.GetVecbAt(region.Y, region.X)[1])
}

func TestAnnotate_GrayscaleInput(t *testing.T) {
	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 100, 200, gocv.MatTypeCV8U)
	defer gray.Close()

	out, err := Annotate(gray, plate.Region{X: 10, Y: 20, Width: 50, Height: 30}, "")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), out.Bounds())
}

func TestAnnotate_EmptyImage(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	_, err := Annotate(img, plate.Region{Width: 1, Height: 1}, "x")
	assert.Error(t, err)
}

func TestDecodeImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 30))
	src.Set(5, 5, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	mat, err := DecodeImage(buf.Bytes())
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 40, mat.Cols())
	assert.Equal(t, 30, mat.Rows())
	assert.Equal(t, 3, mat.Channels())

	// BGR order
	assert.Equal(t, []uint8{0, 0, 255}, mat.GetVecbAt(5, 5))
}

func TestDecodeImage_Invalid(t *testing.T) {
	_, err := DecodeImage(nil)
	assert.Error(t, err)

	_, err = DecodeImage([]byte("not an image"))
	assert.Error(t, err)
}
