package types

import "time"

// User is a tracker user profile, as known to either side of the migration.
type User struct {
	ID        string // Source-side identifier.
	Login     string
	Email     string
	FirstName string
	LastName  string
}

// Comment is a single task comment. Comments are immutable once created on
// the source side; the engine only ever creates them on the target.
type Comment struct {
	ID        string
	AuthorID  string // Source user ID; empty when the author is unknown.
	Body      string
	CreatedAt time.Time
}

// Attachment describes a file attached to a task. Only the descriptor is
// carried here; the payload is streamed on demand via the source client.
type Attachment struct {
	ID          string
	Filename    string
	Size        int64 // Bytes, as reported by the source API.
	DownloadURL string
}

// Task is a source-tracker task. ParentID links subtasks to their parent;
// an empty ParentID marks a top-level task. Comments and Attachments are
// populated lazily by the engine before the task is synced.
type Task struct {
	ID          string
	ProjectID   string
	Name        string
	Description string
	Status      string
	Type        string
	AuthorID    string
	AssigneeID  string
	ParentID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartDate   time.Time
	DueDate     time.Time
	Comments    []Comment
	Attachments []Attachment
}

// WorkPackage is the target-side creation/update payload for a task.
// It is deliberately wire-format agnostic; the OpenProject client owns the
// translation to the API's _links representation.
type WorkPackage struct {
	Subject     string
	Description string
	ProjectID   int64
	StatusID    string // Empty means "leave the target default".
	TypeID      string // Empty means "leave the target default".
	AssigneeID  int64  // Zero means unassigned.
	ParentID    int64  // Zero means no parent link.
	StartDate   string // ISO date (YYYY-MM-DD), empty to omit.
	DueDate     string // ISO date (YYYY-MM-DD), empty to omit.
}
