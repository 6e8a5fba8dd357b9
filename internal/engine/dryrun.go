// Dry-run collaborators: a Sink whose writes are logging no-ops returning
// simulated identifiers, and a Fetcher that yields empty payloads so no
// attachment bytes cross the wire. Together with the store overlay they give
// a preview run the exact control flow of a live one.
package engine

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// dryRunSink logs every intended write and hands out negative pseudo IDs so
// simulated mappings can never collide with real target identifiers.
type dryRunSink struct {
	log  *slog.Logger
	next atomic.Int64
}

var _ Sink = (*dryRunSink)(nil)

func newDryRunSink(log *slog.Logger) *dryRunSink {
	return &dryRunSink{log: log}
}

func (d *dryRunSink) pseudoID() int64 { return -d.next.Add(1) }

func (d *dryRunSink) CreateTask(ctx context.Context, wp *types.WorkPackage) (int64, error) {
	id := d.pseudoID()
	d.log.Info("[dry-run] would create work package",
		"subject", wp.Subject, "project", wp.ProjectID, "status", wp.StatusID,
		"parent", wp.ParentID, "assignee", wp.AssigneeID, "simulated_id", id)
	return id, nil
}

func (d *dryRunSink) UpdateTask(ctx context.Context, targetID int64, wp *types.WorkPackage) error {
	d.log.Info("[dry-run] would update work package",
		"target", targetID, "subject", wp.Subject, "status", wp.StatusID)
	return nil
}

func (d *dryRunSink) CreateComment(ctx context.Context, targetTaskID int64, body string) (int64, error) {
	id := d.pseudoID()
	d.log.Info("[dry-run] would create comment",
		"target_task", targetTaskID, "bytes", len(body), "simulated_id", id)
	return id, nil
}

func (d *dryRunSink) CreateAttachment(ctx context.Context, targetTaskID int64, filename string, payload io.Reader) (int64, error) {
	id := d.pseudoID()
	d.log.Info("[dry-run] would upload attachment",
		"target_task", targetTaskID, "filename", filename, "simulated_id", id)
	return id, nil
}

func (d *dryRunSink) EnsureUser(ctx context.Context, user types.User) (int64, error) {
	id := d.pseudoID()
	d.log.Info("[dry-run] would ensure user", "login", user.Login, "simulated_id", id)
	return id, nil
}

// dryRunFetcher satisfies transfer.Fetcher without reading source payloads.
type dryRunFetcher struct{}

func (dryRunFetcher) FetchAttachment(ctx context.Context, attachmentID string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}
