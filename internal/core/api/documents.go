package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/neilberkman/docchat/internal/core/models"
)

// ProgressFunc receives upload progress as a percentage between 0 and 100.
type ProgressFunc func(percent float64)

// UploadDocument sends r as a multipart file named filename.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader, progress ProgressFunc) (*models.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	size := int64(buf.Len())
	var body io.Reader = &buf
	if progress != nil {
		body = &progressReader{r: &buf, total: size, report: progress}
	}

	var resp models.UploadResponse
	if err := c.Do(ctx, http.MethodPost, "/documents/upload", body, &resp, WithContentType(mw.FormDataContentType()), WithContentLength(size)); err != nil {
		return nil, err
	}
	if progress != nil {
		progress(100)
	}
	return &resp, nil
}

// ListDocuments returns one page of the user's documents.
func (c *Client) ListDocuments(ctx context.Context, skip, limit int) ([]models.Document, error) {
	var out []models.Document
	if err := c.Do(ctx, http.MethodGet, "/documents/", nil, &out, WithQuery(pageQuery(skip, limit))); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDocument removes a document and its index entries.
func (c *Client) DeleteDocument(ctx context.Context, id models.ID) error {
	return c.Do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id.String()), nil, nil)
}

// DocumentStats returns totals for the dashboard.
func (c *Client) DocumentStats(ctx context.Context) (*models.DocumentStats, error) {
	var out models.DocumentStats
	if err := c.Do(ctx, http.MethodGet, "/documents/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// progressReader tracks how much of the request body the transport consumed
type progressReader struct {
	r       io.Reader
	total   int64
	current int64
	last    float64
	report  ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.current += int64(n)
	if p.total > 0 && n > 0 {
		pct := float64(p.current) / float64(p.total) * 100
		// body fully read is not the same as the server having accepted it
		if pct >= 100 {
			pct = 99
		}
		if pct-p.last >= 1 || p.last == 0 {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
