package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"os"
	"path/filepath"
	"sync/atomic"
)

// UploadTarget identifies a bulk-upload endpoint and its form field.
type UploadTarget struct {
	Path  string
	Field string
}

// The two bulk-replace endpoints the backend exposes.
var (
	TargetProducts = UploadTarget{Path: "/api/upload/products", Field: "products"}
	TargetBehavior = UploadTarget{Path: "/api/upload/user-behavior", Field: "user_behavior"}
)

// progressReader counts bytes as the transport consumes the request body.
type progressReader struct {
	r      io.Reader
	sent   atomic.Int64
	total  int64
	report func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		sent := p.sent.Add(int64(n))
		if p.report != nil {
			p.report(sent, p.total)
		}
	}
	return n, err
}

// UploadCSV sends the named files as one multipart request to the target
// endpoint. Every file goes under the target's form field. onProgress is
// called with transport-level byte counters as the body is consumed; the
// final call is (total, total) before the response arrives.
//
// The raw response body is returned for a 2xx status; non-2xx becomes
// *Error. No automatic retry: a silent replay would restart progress
// reporting mid-session, and the endpoint is a bulk replace.
func (c *Client) UploadCSV(ctx context.Context, target UploadTarget, paths []string, onProgress func(sent, total int64)) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}

		part, err := writer.CreateFormFile(target.Field, filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to package %s: %w", path, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	reader := &progressReader{
		r:      bytes.NewReader(body.Bytes()),
		total:  int64(body.Len()),
		report: onProgress,
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.baseURL+target.Path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.ContentLength = int64(body.Len())

	resp, err := c.rawClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(resp.StatusCode, respBody)
	}

	return respBody, nil
}
