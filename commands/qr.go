package commands

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256 // pixels

// writeQRCode renders url as a QR code PNG at path.
func writeQRCode(url string, path string) error {
	if err := qrcode.WriteFile(url, qrcode.Medium, qrImageSize, path); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}
	return nil
}

// qrTerminal renders url as a small block QR code suitable for the kiosk
// console so guests can scan straight off the screen.
func qrTerminal(url string) (string, error) {
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return q.ToSmallString(false), nil
}
