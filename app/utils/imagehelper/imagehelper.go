package imagehelper

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// LoadPortrait 读取肖像图片并规范化为可上传的字节
// 超过 maxEdge 的图片按比例缩小，避免超出上游的尺寸限制
// 返回图片字节和对应的 MIME 类型
func LoadPortrait(path string, maxEdge int) ([]byte, string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("读取图片失败: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxEdge || bounds.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	format, mimeType := formatFor(path)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, "", fmt.Errorf("编码图片失败: %w", err)
	}
	return buf.Bytes(), mimeType, nil
}

// formatFor 根据扩展名决定编码格式和 MIME 类型，默认 JPEG
func formatFor(path string) (imaging.Format, string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return imaging.PNG, "image/png"
	case ".gif":
		return imaging.GIF, "image/gif"
	default:
		return imaging.JPEG, "image/jpeg"
	}
}
