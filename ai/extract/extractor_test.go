package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor()

	text, err := e.ExtractText(context.Background(), []byte("hello world\n\nsecond paragraph"))
	require.NoError(t, err)
	assert.Contains(t, text, "hello world")
	assert.Contains(t, text, "second paragraph")
}

func TestExtractHTMLStripsMarkup(t *testing.T) {
	e := NewExtractor()

	html := []byte("<!DOCTYPE html><html><body><h1>Title</h1><p>Body text here.</p></body></html>")
	text, err := e.ExtractText(context.Background(), html)
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Body text here.")
	assert.NotContains(t, text, "<p>")
}

func TestExtractEmptyContent(t *testing.T) {
	e := NewExtractor()

	_, err := e.ExtractText(context.Background(), nil)
	assert.Error(t, err)
}

func TestExtractRejectsBinary(t *testing.T) {
	e := NewExtractor()

	// A PNG header: neither text nor a supported document format.
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	_, err := e.ExtractText(context.Background(), png)
	assert.Error(t, err)
}
