package gltfmodel

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ResourceReader 外部资源读取接口
type ResourceReader interface {
	ReadResource(uri string) ([]byte, error)
}

// dirReader resolves relative URIs against the directory of the source asset.
type dirReader struct {
	base string
}

func NewResourceReader(base string) ResourceReader {
	return &dirReader{base: base}
}

func (r *dirReader) ReadResource(uri string) ([]byte, error) {
	if u, err := url.Parse(uri); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		resp, err := http.Get(uri)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: %s", uri, resp.Status)
		}
		return io.ReadAll(resp.Body)
	}
	p := uri
	if r.base != "" && !filepath.IsAbs(p) {
		p = filepath.Join(r.base, filepath.FromSlash(p))
	}
	return os.ReadFile(p)
}

const dataURIPrefix = "data:"

func isDataURI(uri string) bool {
	return strings.HasPrefix(uri, dataURIPrefix)
}

// decodeDataURI splits a base64 data URI into its mime type and decoded payload.
func decodeDataURI(uri string) (mime string, data []byte, err error) {
	rest := strings.TrimPrefix(uri, dataURIPrefix)
	sep := strings.Index(rest, ";base64,")
	if !isDataURI(uri) || sep < 0 {
		return "", nil, fmt.Errorf("%w: malformed data uri", ErrInvalidDocument)
	}
	mime = rest[:sep]
	data, err = base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return mime, data, nil
}

// decodeBufferDataURI decodes an embedded buffer payload. Both the
// application/gltf-buffer form and the application/octet-stream form are
// accepted.
func decodeBufferDataURI(uri string) ([]byte, error) {
	mime, data, err := decodeDataURI(uri)
	if err != nil {
		return nil, err
	}
	if mime != "application/gltf-buffer" && mime != "application/octet-stream" {
		return nil, fmt.Errorf("%w: buffer data uri mime %q", ErrInvalidDocument, mime)
	}
	return data, nil
}
