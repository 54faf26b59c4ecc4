package imagehelper_test

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"content-forge/app/utils/imagehelper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, name string, width, height int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if filepath.Ext(name) == ".png" {
		require.NoError(t, png.Encode(f, img))
	} else {
		require.NoError(t, jpeg.Encode(f, img, nil))
	}
	return path
}

func TestLoadPortraitKeepsSmallImage(t *testing.T) {
	t.Parallel()
	path := writeImage(t, "small.png", 100, 80)

	data, mimeType, err := imagehelper.LoadPortrait(path, 2048)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)

	decoded, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 80, decoded.Bounds().Dy())
}

func TestLoadPortraitShrinksOversizedImage(t *testing.T) {
	t.Parallel()
	path := writeImage(t, "big.jpg", 400, 200)

	data, mimeType, err := imagehelper.LoadPortrait(path, 100)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)

	// 等比缩放，最长边不超过上限
	decoded, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())
}

func TestLoadPortraitMissingFile(t *testing.T) {
	t.Parallel()
	_, _, err := imagehelper.LoadPortrait(filepath.Join(t.TempDir(), "missing.png"), 2048)
	assert.Error(t, err)
}
