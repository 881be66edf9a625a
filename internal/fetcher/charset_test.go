package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeBody_ExplicitUTF8ContentType(t *testing.T) {
	body, err := decodeBody([]byte("hello"), "text/html; charset=utf-8", "euc-kr", 0.02)
	assert.NoError(t, err)
	assert.Equal(t, "hello", body)
}

func TestDecodeBody_NoContentTypeCleanASCII(t *testing.T) {
	body, err := decodeBody([]byte("plain text"), "", "euc-kr", 0.02)
	assert.NoError(t, err)
	assert.Equal(t, "plain text", body)
}

func TestCharsetFromContentType(t *testing.T) {
	assert.Equal(t, "euc-kr", charsetFromContentType("text/html; charset=EUC-KR"))
	assert.Equal(t, "", charsetFromContentType(""))
	assert.Equal(t, "", charsetFromContentType("not a content type;;;"))
}

func TestReplacementRatio(t *testing.T) {
	assert.Equal(t, float64(0), replacementRatio(""))
	assert.Equal(t, float64(0), replacementRatio("clean text"))
	assert.Greater(t, replacementRatio("abc�def�"), float64(0))
}

func TestIsUTF8Alias(t *testing.T) {
	assert.True(t, isUTF8Alias("utf-8"))
	assert.True(t, isUTF8Alias("utf8"))
	assert.False(t, isUTF8Alias("euc-kr"))
}
