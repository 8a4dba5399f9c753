package fetcher

import (
	"mime"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

var metaCharset = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*([a-z0-9_:.\-]+)`)

// sniffLen bounds how much of a document is searched for a <meta> charset.
const sniffLen = 2048

// ToUTF8 decodes body to UTF-8 using the charset from the Content-Type
// header or, failing that, from a <meta> declaration in the document head.
// Bodies without a declared charset are returned unchanged.
func ToUTF8(body []byte, contentType string) ([]byte, error) {
	label := DetectCharset(body, contentType)
	if label == "" {
		return body, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, eris.Wrapf(err, "charset: unsupported charset %q", label)
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return body, nil
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, eris.Wrapf(err, "charset: decode %s", label)
	}
	return out, nil
}

// DetectCharset returns the declared charset label, lowercased, or "".
func DetectCharset(body []byte, contentType string) string {
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			if cs := params["charset"]; cs != "" {
				return strings.ToLower(cs)
			}
		}
	}

	head := body
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if m := metaCharset.FindSubmatch(head); m != nil {
		return strings.ToLower(string(m[1]))
	}
	return ""
}
