// Per-project sync pass: ordering, per-task create/update/no-op decisions,
// and the follow-on comment and attachment sync.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/opsync/internal/hierarchy"
	"github.com/mesh-intelligence/opsync/pkg/types"
)

// syncProject lists, orders, and syncs one project's work set. The returned
// error aborts this project only; partial stats are still meaningful.
func (e *Engine) syncProject(ctx context.Context, log *slog.Logger, project types.ProjectMapping, since time.Time) (*Stats, error) {
	stats := &Stats{}

	tasks, err := e.source.ListTasks(ctx, project.MegaplanID, since, project.IncludeClosed)
	if err != nil {
		return stats, fmt.Errorf("listing tasks for project %s: %w", project.MegaplanID, err)
	}
	if len(tasks) == 0 {
		log.Info("no tasks in scope", "project", project.MegaplanID)
		return stats, nil
	}

	// A cycle aborts the project before any mapping is touched.
	ordered, err := hierarchy.Order(tasks)
	if err != nil {
		return stats, err
	}

	for _, task := range ordered {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		e.syncTask(ctx, log, project, task, stats)
	}
	return stats, nil
}

// syncTask migrates a single task and, once its mapping is synced, its
// comments and attachments. Failures are recorded on the mapping and logged;
// they never abort the project.
func (e *Engine) syncTask(ctx context.Context, log *slog.Logger, project types.ProjectMapping, task *types.Task, stats *Stats) {
	existing, err := e.store.LookupTask(task.ID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		// A storage error is fatal for this record only.
		log.Error("mapping lookup failed", "task", task.ID, "error", err)
		stats.Failed++
		return
	}

	// Resolve the parent link from already-committed mappings. A parent
	// outside the current scope still links up when it was mapped by an
	// earlier run.
	var parentTargetID int64
	if task.ParentID != "" {
		if parent, err := e.store.LookupTask(task.ParentID); err == nil && parent.SyncStatus == types.StatusSynced {
			parentTargetID = parent.TargetID
		}
	}

	assigneeID := e.resolveUser(ctx, log, task.AssigneeID)

	wp, omitted, err := e.mapper.Map(task, project.OpenProjectID, parentTargetID, assigneeID)
	if err != nil {
		log.Warn("task unmappable", "task", task.ID, "error", err)
		if markErr := e.store.MarkTaskFailed(task.ID, err.Error()); markErr != nil {
			log.Error("marking task failed", "task", task.ID, "error", markErr)
		}
		stats.Failed++
		return
	}
	for _, field := range omitted {
		log.Warn("field omitted from payload", "task", task.ID, "field", field)
	}

	var targetID int64
	now := time.Now()

	switch {
	case existing == nil || existing.TargetID == 0:
		// Create path: no prior target record (or a failed create).
		targetID, err = e.sink.CreateTask(ctx, wp)
		if err != nil {
			log.Error("create failed", "task", task.ID, "error", err)
			e.recordTaskFailure(log, task.ID, err)
			stats.Failed++
			return
		}
		stats.Created++
	case task.UpdatedAt.After(existing.SourceUpdatedAt) || existing.SyncStatus == types.StatusFailed:
		// Update path: the source advanced, or the last pass failed
		// after the target record was created.
		targetID = existing.TargetID
		if err := e.sink.UpdateTask(ctx, targetID, wp); err != nil {
			log.Error("update failed", "task", task.ID, "target", targetID, "error", err)
			e.recordTaskFailure(log, task.ID, err)
			stats.Failed++
			return
		}
		stats.Updated++
	default:
		// Unchanged. Still visited so children and late-arriving
		// comments/attachments aren't blocked.
		targetID = existing.TargetID
		stats.Unchanged++
	}

	err = e.store.UpsertTask(types.TaskMapping{
		SourceID:        task.ID,
		TargetID:        targetID,
		SourceUpdatedAt: task.UpdatedAt,
		SyncStatus:      types.StatusSynced,
		LastSyncedAt:    now,
	})
	if err != nil {
		log.Error("committing task mapping", "task", task.ID, "error", err)
		stats.Failed++
		return
	}

	if e.cfg.Sync.SyncComments {
		e.syncComments(ctx, log, task, targetID, stats)
	}
	if e.cfg.Sync.SyncAttachments {
		e.syncAttachments(ctx, log, task, targetID, stats)
	}
}

// recordTaskFailure marks the mapping failed so the next run retries it.
func (e *Engine) recordTaskFailure(log *slog.Logger, taskID string, cause error) {
	if err := e.store.MarkTaskFailed(taskID, cause.Error()); err != nil {
		log.Error("marking task failed", "task", taskID, "error", err)
	}
}

// syncComments creates target comments for source comments that have no
// mapping yet. Comments are immutable, so an existing synced mapping is
// final and the comment is never re-sent.
func (e *Engine) syncComments(ctx context.Context, log *slog.Logger, task *types.Task, targetTaskID int64, stats *Stats) {
	comments, err := e.source.ListComments(ctx, task.ID)
	if err != nil {
		log.Error("listing comments", "task", task.ID, "error", err)
		stats.Failed++
		return
	}

	for _, comment := range comments {
		existing, err := e.store.LookupComment(task.ID, comment.ID)
		if err == nil && existing.SyncStatus == types.StatusSynced {
			continue
		}
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			log.Error("comment lookup failed", "task", task.ID, "comment", comment.ID, "error", err)
			stats.Failed++
			continue
		}

		author := comment.AuthorID
		if author == "" {
			author = "unknown"
		}
		body := fmt.Sprintf("%s\n\n_Author: %s_", comment.Body, author)

		targetID, err := e.sink.CreateComment(ctx, targetTaskID, body)
		if err != nil {
			log.Error("creating comment", "task", task.ID, "comment", comment.ID, "error", err)
			e.upsertCommentMapping(log, task.ID, comment.ID, 0, types.StatusFailed, err.Error())
			stats.Failed++
			continue
		}
		e.upsertCommentMapping(log, task.ID, comment.ID, targetID, types.StatusSynced, "")
		stats.Comments++
	}
}

func (e *Engine) upsertCommentMapping(log *slog.Logger, taskID, commentID string, targetID int64, status, reason string) {
	err := e.store.UpsertComment(types.CommentMapping{
		SourceTaskID:    taskID,
		SourceCommentID: commentID,
		TargetID:        targetID,
		SyncStatus:      status,
		LastSyncedAt:    time.Now(),
		Reason:          reason,
	})
	if err != nil {
		log.Error("committing comment mapping", "task", taskID, "comment", commentID, "error", err)
	}
}

// syncAttachments transfers source attachments within the size ceiling. A
// skipped attachment is reconsidered only when its source size changes.
func (e *Engine) syncAttachments(ctx context.Context, log *slog.Logger, task *types.Task, targetTaskID int64, stats *Stats) {
	attachments, err := e.source.ListAttachments(ctx, task.ID)
	if err != nil {
		log.Error("listing attachments", "task", task.ID, "error", err)
		stats.Failed++
		return
	}

	for _, att := range attachments {
		existing, err := e.store.LookupAttachment(task.ID, att.ID)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			log.Error("attachment lookup failed", "task", task.ID, "attachment", att.ID, "error", err)
			stats.Failed++
			continue
		}
		if existing != nil {
			if existing.SyncStatus == types.StatusSynced {
				continue
			}
			if existing.SyncStatus == types.StatusSkipped && existing.Size == att.Size {
				continue
			}
		}

		result, err := e.transfer.Transfer(ctx, targetTaskID, att)
		if err != nil {
			log.Error("attachment transfer failed", "task", task.ID, "attachment", att.ID, "error", err)
			if markErr := e.store.MarkAttachmentFailed(task.ID, att.ID, att.Size, err.Error()); markErr != nil {
				log.Error("marking attachment failed", "attachment", att.ID, "error", markErr)
			}
			stats.Failed++
			continue
		}
		if result.Skipped {
			log.Warn("attachment skipped", "task", task.ID, "attachment", att.ID,
				"filename", att.Filename, "reason", result.Reason)
			if markErr := e.store.MarkAttachmentSkipped(task.ID, att.ID, att.Size, result.Reason); markErr != nil {
				log.Error("marking attachment skipped", "attachment", att.ID, "error", markErr)
			}
			stats.Skipped++
			continue
		}

		err = e.store.UpsertAttachment(types.AttachmentMapping{
			SourceTaskID:       task.ID,
			SourceAttachmentID: att.ID,
			TargetID:           result.TargetID,
			Size:               att.Size,
			SyncStatus:         types.StatusSynced,
			LastSyncedAt:       time.Now(),
		})
		if err != nil {
			log.Error("committing attachment mapping", "task", task.ID, "attachment", att.ID, "error", err)
			continue
		}
		stats.Attachments++
	}
}

// resolveUser maps a source user to a target user ID: configured override,
// then the mapping cache, then an API ensure-user round trip. Every failure
// falls back to the configured default user.
func (e *Engine) resolveUser(ctx context.Context, log *slog.Logger, sourceID string) int64 {
	fallback := e.cfg.OpenProject.DefaultUserID
	if sourceID == "" {
		return fallback
	}

	if id, err := e.translator.TranslateUser(sourceID); err == nil {
		return id
	}
	if id, err := e.store.LookupUser(sourceID); err == nil {
		return id
	}

	users, err := e.source.FetchUsers(ctx, []string{sourceID})
	if err != nil || len(users) == 0 {
		log.Warn("source user not found", "user", sourceID, "error", err)
		return fallback
	}
	targetID, err := e.sink.EnsureUser(ctx, users[0])
	if err != nil {
		log.Warn("ensure user failed", "user", sourceID, "error", err)
		return fallback
	}
	if err := e.store.UpsertUser(sourceID, targetID); err != nil {
		log.Error("caching user mapping", "user", sourceID, "error", err)
	}
	return targetID
}
