package storageservice

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
)

func imagingDecode(data []byte) (image.Image, string, error) {
	return image.Decode(bytes.NewReader(data))
}

func TestResizeToJPEG(t *testing.T) {
	testCases := []struct {
		name   string
		format imaging.Format
		w, h   int
	}{
		{name: "wide png", format: imaging.PNG, w: 800, h: 200},
		{name: "tall gif", format: imaging.GIF, w: 50, h: 400},
		{name: "small jpeg is upscaled", format: imaging.JPEG, w: 32, h: 32},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := resizeToJPEG(testImage(t, tc.format, tc.w, tc.h), 64, 64, 80)
			assert.NoError(t, err)

			img, format, err := imagingDecode(out)
			assert.NoError(t, err)
			assert.Equal(t, "jpeg", format)
			assert.Equal(t, 64, img.Bounds().Dx())
			assert.Equal(t, 64, img.Bounds().Dy())
		})
	}

	_, err := resizeToJPEG([]byte("not an image"), 64, 64, 80)
	assert.Error(t, err)
}
