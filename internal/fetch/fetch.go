// Package fetch retrieves raw source documents, either from an archive HTTP
// mirror or the local filesystem. The digitized Kent pages are served as
// windows-1252 HTML, so bytes are transcoded to UTF-8 before the parser sees
// them.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Client retrieves chapter source files from an archive mirror.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxBytes   int64
}

// NewClient builds a client for the given mirror base URL. timeout bounds
// each request; maxBytes caps the response size (0 means a 32 MiB default).
func NewClient(baseURL string, timeout time.Duration, maxBytes int64) *Client {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
	}
}

// Document fetches a source file by its path under the mirror root, e.g.
// "kent0000_P1.html", and returns its contents as UTF-8.
func (c *Client) Document(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+name, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetch %s: status %d: %s", name, resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return Decode(data, name)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// File loads a local source document and returns its contents as UTF-8.
func File(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data, path)
}

// Decode transcodes legacy text shapes from windows-1252 to UTF-8. Binary
// container formats (docx, pdf) and anything already valid UTF-8 pass through
// untouched.
func Decode(data []byte, name string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx", ".pdf":
		return data, nil
	}
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return decoded, nil
}
