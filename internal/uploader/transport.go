package uploader

import (
	"context"
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"
)

// Transport streams a request body to a presigned URL. Implementations must
// honor context cancellation so stall detection can abort a dead transfer.
type Transport interface {
	Put(ctx context.Context, url, contentType string, body io.Reader, size int64) error
}

type restyTransport struct {
	client *resty.Client
}

// NewTransport builds the production HTTP transport. Retries are handled by
// the queue, not resty, so the client is configured bare.
func NewTransport() Transport {
	return &restyTransport{client: resty.New().SetRetryCount(0)}
}

func (t *restyTransport) Put(ctx context.Context, url, contentType string, body io.Reader, size int64) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("Content-Length", fmt.Sprintf("%d", size)).
		SetBody(body).
		Put(url)
	if err != nil {
		return fmt.Errorf("media transfer failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("media transfer rejected: %s", resp.Status())
	}
	return nil
}

// progressReader reports cumulative bytes read to a callback, feeding both
// the job progress percentage and the stall detector.
type progressReader struct {
	r          io.Reader
	sent       int64
	onProgress func(sent int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent)
		}
	}
	return n, err
}
