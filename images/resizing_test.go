package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestShrink(t *testing.T) {
	data := encodeJPEG(t, getTestImage(200, 100))

	img, err := Shrink(data, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())
}

func TestShrink_FitsAlready(t *testing.T) {
	data := encodeJPEG(t, getTestImage(40, 30))

	for _, maxEdge := range []int{0, 40, 1000} {
		img, err := Shrink(data, maxEdge)
		require.NoError(t, err)
		assert.Equal(t, image.Pt(40, 30), img.Bounds().Size(), "maxEdge %d", maxEdge)
	}
}

func TestShrink_Invalid(t *testing.T) {
	_, err := Shrink([]byte("not a jpeg"), 50)
	assert.Error(t, err)

	_, err = Shrink(nil, 50)
	assert.ErrorContains(t, err, "image data is empty")
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want ImageFormat
	}{
		{"out.jpg", FormatJPEG},
		{"out.JPEG", FormatJPEG},
		{"dir/out.png", FormatPNG},
		{"out.webp", FormatWebP},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := FormatFromPath("out.gif")
	assert.Error(t, err)
}

func TestEncode_RoundTrip(t *testing.T) {
	src := getTestImage(16, 8)

	for _, format := range []ImageFormat{FormatJPEG, FormatPNG, FormatWebP} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, src, format))

			img, err := DecodeBytes(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, image.Pt(16, 8), img.Bounds().Size())
		})
	}

	assert.Error(t, Encode(&bytes.Buffer{}, src, "bmp"))
}
