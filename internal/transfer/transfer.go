// Package transfer copies attachment payloads from source to target subject
// to a size ceiling. The ceiling is checked against the source-reported size
// before any data is read, so oversized files cost no bandwidth.
package transfer

import (
	"context"
	"fmt"
	"io"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// Fetcher streams an attachment payload from the source tracker.
type Fetcher interface {
	FetchAttachment(ctx context.Context, attachmentID string) (io.ReadCloser, error)
}

// Uploader creates an attachment on a target task.
type Uploader interface {
	CreateAttachment(ctx context.Context, targetTaskID int64, filename string, payload io.Reader) (int64, error)
}

// Result is the outcome of one transfer attempt. Skipped results are not
// errors: they are recorded, attributable outcomes.
type Result struct {
	TargetID int64
	Skipped  bool
	Reason   string
}

// Transferrer copies attachments within a byte ceiling.
type Transferrer struct {
	fetcher  Fetcher
	uploader Uploader
	maxBytes int64
}

// New builds a Transferrer. maxBytes must be positive (config validation
// guarantees it).
func New(fetcher Fetcher, uploader Uploader, maxBytes int64) *Transferrer {
	return &Transferrer{fetcher: fetcher, uploader: uploader, maxBytes: maxBytes}
}

// Transfer copies one attachment onto targetTaskID. An attachment above the
// ceiling comes back as a skipped Result without touching the source. A
// fetch or upload failure is returned as an error for the caller to record
// as failed.
func (t *Transferrer) Transfer(ctx context.Context, targetTaskID int64, att types.Attachment) (Result, error) {
	if att.Size > t.maxBytes {
		return Result{
			Skipped: true,
			Reason:  fmt.Sprintf("size %d exceeds limit %d", att.Size, t.maxBytes),
		}, nil
	}

	payload, err := t.fetcher.FetchAttachment(ctx, att.ID)
	if err != nil {
		return Result{}, fmt.Errorf("fetching attachment %s: %w", att.ID, err)
	}
	defer payload.Close()

	targetID, err := t.uploader.CreateAttachment(ctx, targetTaskID, att.Filename, payload)
	if err != nil {
		return Result{}, fmt.Errorf("uploading attachment %s: %w", att.ID, err)
	}
	return Result{TargetID: targetID}, nil
}
