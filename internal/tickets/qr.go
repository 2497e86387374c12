package tickets

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// DefaultQRSize is the PNG edge length used when none is configured.
const DefaultQRSize = 400

// RenderQR encodes content as a PNG QR symbol with high error correction.
func RenderQR(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(content, qrcode.High, size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}
