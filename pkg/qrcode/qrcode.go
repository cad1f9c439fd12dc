// Package qrcode renders attendance check-in payloads as PNG QR codes.
package qrcode

import (
	"encoding/base64"
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 256

// Generator encodes payloads into PNG images of a fixed size.
type Generator struct {
	size int
}

// NewGenerator returns a generator; non-positive sizes fall back to 256px.
func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = defaultSize
	}
	return &Generator{size: size}
}

// PNG encodes the payload with medium error correction.
func (g *Generator) PNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qr payload required")
	}
	png, err := goqrcode.Encode(payload, goqrcode.Medium, g.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// DataURI returns the PNG as a base64 data URI suitable for an <img> tag.
func (g *Generator) DataURI(payload string) (string, error) {
	png, err := g.PNG(payload)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
