package network

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/open-edge-platform/appliance-update-tool/internal/utils/logger"
)

// MaxDocumentSize caps a catalog document after decompression.
var MaxDocumentSize int64 = 32 << 20

// UserAgent is sent with every request.
var UserAgent = "appliance-update-tool"

// Fetcher retrieves catalog documents over HTTP and transparently decodes
// gzip, zstd and xz bodies, selected by Content-Encoding or URL suffix.
type Fetcher struct {
	Client *http.Client
}

// NewFetcher returns a Fetcher using the secure client.
func NewFetcher() *Fetcher {
	return &Fetcher{Client: NewSecureHTTPClient()}
}

// Get issues a GET request and returns the response for status 200.
func Get(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Encoding", "gzip, zstd")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: bad status: %s", rawURL, resp.Status)
	}
	return resp, nil
}

// Fetch returns the decoded document body at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	log := logger.Logger()

	client := f.Client
	if client == nil {
		client = NewSecureHTTPClient()
	}
	resp, err := Get(ctx, client, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	encoding := contentEncoding(resp.Header.Get("Content-Encoding"), rawURL)
	body, err := Decode(resp.Body, encoding)
	if err != nil {
		return nil, fmt.Errorf("decoding %s body of %s: %w", encoding, rawURL, err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if int64(len(data)) > MaxDocumentSize {
		return nil, fmt.Errorf("document %s exceeds %d bytes", rawURL, MaxDocumentSize)
	}
	log.Debugf("fetched %s (%d bytes, encoding=%s)", rawURL, len(data), encoding)
	return data, nil
}

// contentEncoding prefers the response header and falls back to the URL suffix.
func contentEncoding(header, rawURL string) string {
	switch strings.ToLower(strings.TrimSpace(header)) {
	case "gzip", "x-gzip":
		return "gzip"
	case "zstd":
		return "zstd"
	case "xz":
		return "xz"
	}
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	switch path.Ext(p) {
	case ".gz":
		return "gzip"
	case ".zst":
		return "zstd"
	case ".xz":
		return "xz"
	}
	return "identity"
}

// Decode wraps r in a decompressor for the given encoding.
func Decode(r io.Reader, encoding string) (io.ReadCloser, error) {
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return gz, nil
	case "zstd":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case "xz":
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	default:
		return io.NopCloser(r), nil
	}
}

// Encode compresses data with the given encoding. It mirrors Decode and is
// used to publish fixture documents.
func Encode(data []byte, encoding string) ([]byte, error) {
	var buf bytes.Buffer
	switch encoding {
	case "gzip":
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case "zstd":
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case "xz":
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		buf.Write(data)
	}
	return buf.Bytes(), nil
}
