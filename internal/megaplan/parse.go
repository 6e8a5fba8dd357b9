package megaplan

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// timeLayouts covers the formats seen in the wild: RFC 3339 with and
// without sub-second precision, the offset form without a colon, and bare
// dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// first returns the first non-empty value among the named fields.
func first(item gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := item.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// parseTask reads one task object. Some endpoints wrap the object in a
// data envelope; both shapes are accepted.
func parseTask(item gjson.Result) *types.Task {
	if data := item.Get("data"); data.Exists() {
		item = data
	}

	task := &types.Task{
		ID:          first(item, "id", "TaskId"),
		ProjectID:   first(item, "project_id", "Project", "project.id"),
		Name:        first(item, "name", "Name", "title"),
		Description: first(item, "description", "Description"),
		Status:      first(item, "status", "Status"),
		AuthorID:    first(item, "author_id", "Author"),
		AssigneeID:  first(item, "responsible_id", "Responsible"),
		ParentID:    first(item, "parent_id", "ParentTask"),
		CreatedAt:   parseTime(first(item, "created_at", "CreatedAt")),
		UpdatedAt:   parseTime(first(item, "updated_at", "UpdatedAt")),
		StartDate:   parseTime(first(item, "start_date", "StartDate")),
		DueDate:     parseTime(first(item, "due_date", "FinishDate")),
	}
	if task.Status == "" {
		task.Status = "unknown"
	}
	return task
}

func parseComment(item gjson.Result) types.Comment {
	return types.Comment{
		ID:        first(item, "id", "CommentId"),
		AuthorID:  first(item, "author_id", "Author"),
		Body:      first(item, "text", "Body"),
		CreatedAt: parseTime(first(item, "created_at", "CreatedAt")),
	}
}

func parseAttachment(item gjson.Result) types.Attachment {
	att := types.Attachment{
		ID:          first(item, "id", "FileId"),
		Filename:    first(item, "name", "FileName"),
		Size:        item.Get("size").Int(),
		DownloadURL: first(item, "download_url", "DownloadUrl"),
	}
	if att.Size == 0 {
		att.Size = item.Get("FileSize").Int()
	}
	if att.Filename == "" {
		att.Filename = att.ID
	}
	return att
}

func parseUser(item gjson.Result) types.User {
	return types.User{
		ID:        first(item, "id", "UserId"),
		Login:     first(item, "login", "Login"),
		Email:     first(item, "email", "Email"),
		FirstName: first(item, "first_name", "FirstName"),
		LastName:  first(item, "last_name", "LastName"),
	}
}
