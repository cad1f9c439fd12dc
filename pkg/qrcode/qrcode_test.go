package qrcode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestGeneratorPNG(t *testing.T) {
	png, err := NewGenerator(0).PNG("entry-1|teacher-1|2025-03-10")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	_, err = NewGenerator(128).PNG("")
	assert.Error(t, err)
}

func TestGeneratorDataURI(t *testing.T) {
	uri, err := NewGenerator(128).DataURI("payload")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}
