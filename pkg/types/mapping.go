package types

import "time"

// Sync statuses recorded on mapping rows. A mapping moves from pending to
// exactly one of synced, skipped, or failed on each pass; failed rows are
// retried on the next run, skipped rows are not.
const (
	StatusPending = "pending"
	StatusSynced  = "synced"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Mapping kinds accepted by Store.ListPending.
const (
	KindTasks       = "tasks"
	KindComments    = "comments"
	KindAttachments = "attachments"
)

// validStatuses is the set of recognized sync status values.
var validStatuses = map[string]bool{
	StatusPending: true,
	StatusSynced:  true,
	StatusSkipped: true,
	StatusFailed:  true,
}

// ValidStatus reports whether s is a recognized sync status.
func ValidStatus(s string) bool { return validStatuses[s] }

// TaskMapping records the correspondence between a source task and the work
// package created for it on the target. At most one row exists per SourceID;
// TargetID is meaningful only when SyncStatus is StatusSynced.
type TaskMapping struct {
	SourceID        string
	TargetID        int64
	SourceUpdatedAt time.Time // Source-side updated_at at the last sync.
	SyncStatus      string
	LastSyncedAt    time.Time
	Reason          string // Populated for skipped and failed rows.
}

// CommentMapping records a migrated comment, keyed by the (source task,
// source comment) pair. Comments are create-only; a mapping is never updated
// after it reaches StatusSynced.
type CommentMapping struct {
	SourceTaskID    string
	SourceCommentID string
	TargetID        int64
	SyncStatus      string
	LastSyncedAt    time.Time
	Reason          string
}

// AttachmentMapping records a transferred (or skipped) attachment, keyed by
// the (source task, source attachment) pair. Size holds the source-reported
// byte count at decision time; a skipped attachment is reconsidered only
// when the source size changes.
type AttachmentMapping struct {
	SourceTaskID       string
	SourceAttachmentID string
	TargetID           int64
	Size               int64
	SyncStatus         string
	LastSyncedAt       time.Time
	Reason             string
}

// UserMapping caches a resolved source user → target user correspondence.
type UserMapping struct {
	SourceID     string
	TargetID     int64
	LastSyncedAt time.Time
}
