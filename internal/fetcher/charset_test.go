package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestDetectCharset(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		want        string
	}{
		{"header wins", `<meta charset="utf-8">`, "text/html; charset=Windows-1250", "windows-1250"},
		{"meta charset", `<html><head><meta charset="ISO-8859-2"></head>`, "text/html", "iso-8859-2"},
		{"http-equiv", `<meta http-equiv="Content-Type" content="text/html; charset=windows-1250">`, "", "windows-1250"},
		{"none", `<html></html>`, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCharset([]byte(tt.body), tt.contentType))
		})
	}
}

func TestToUTF8_Windows1250(t *testing.T) {
	encoded, err := charmap.Windows1250.NewEncoder().String("Základní škola Žďár")
	require.NoError(t, err)

	out, err := ToUTF8([]byte(encoded), "text/html; charset=windows-1250")
	require.NoError(t, err)
	assert.Equal(t, "Základní škola Žďár", string(out))
}

func TestToUTF8_PassThrough(t *testing.T) {
	in := []byte(`<meta charset="utf-8">Mateřská škola`)
	out, err := ToUTF8(in, "")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out, err = ToUTF8([]byte("plain"), "")
	require.NoError(t, err)
	assert.Equal(t, "plain", string(out))
}

func TestToUTF8_UnknownCharset(t *testing.T) {
	_, err := ToUTF8([]byte("x"), "text/html; charset=klingon")
	assert.ErrorContains(t, err, "unsupported charset")
}
