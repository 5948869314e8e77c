package imagepkg

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"
)

// GenerateQRPNG returns PNG bytes of a QR code for text, size pixels square.
func GenerateQRPNG(text string, size int) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("qr: empty text")
	}
	b, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return b, nil
}

// GenerateQRImage returns the QR code as an image for composition.
func GenerateQRImage(text string, size int) (image.Image, error) {
	b, err := GenerateQRPNG(text, size)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(b))
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
