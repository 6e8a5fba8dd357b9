// Package engine orchestrates migration runs: it requests the work set from
// the source, orders it parent-first, and drives create/update/no-op
// decisions through the mapping store. Processing within one project is
// strictly sequential; projects share no hierarchy and may run in parallel.
package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/opsync/internal/mapper"
	"github.com/mesh-intelligence/opsync/internal/store"
	"github.com/mesh-intelligence/opsync/internal/transfer"
	"github.com/mesh-intelligence/opsync/pkg/types"
)

// Source is the capability interface the engine needs from the source
// tracker. Listing with a non-zero since must also surface tasks moved into
// scope (the source bumps updated_at on reparenting), or incremental runs
// under-migrate.
type Source interface {
	ListTasks(ctx context.Context, projectID string, since time.Time, includeClosed bool) ([]*types.Task, error)
	ListComments(ctx context.Context, taskID string) ([]types.Comment, error)
	ListAttachments(ctx context.Context, taskID string) ([]types.Attachment, error)
	FetchAttachment(ctx context.Context, attachmentID string) (io.ReadCloser, error)
	FetchUsers(ctx context.Context, ids []string) ([]types.User, error)
}

// Sink is the capability interface the engine needs from the target
// tracker. All writes go through it, which is what makes the dry-run
// wrapper a complete no-op boundary.
type Sink interface {
	CreateTask(ctx context.Context, wp *types.WorkPackage) (int64, error)
	UpdateTask(ctx context.Context, targetID int64, wp *types.WorkPackage) error
	CreateComment(ctx context.Context, targetTaskID int64, body string) (int64, error)
	CreateAttachment(ctx context.Context, targetTaskID int64, filename string, payload io.Reader) (int64, error)
	EnsureUser(ctx context.Context, user types.User) (int64, error)
}

// Stats summarizes one project's pass.
type Stats struct {
	Created     int    `json:"created"`
	Updated     int    `json:"updated"`
	Unchanged   int    `json:"unchanged"`
	Failed      int    `json:"failed"`
	Skipped     int    `json:"skipped"`
	Comments    int    `json:"comments"`
	Attachments int    `json:"attachments"`
	Error       string `json:"error,omitempty"` // Set when the project run aborted.
}

// Engine is the synchronization orchestrator. Construct with New; the
// configuration value is immutable for the engine's lifetime.
type Engine struct {
	cfg        types.Config
	source     Source
	sink       Sink
	store      *store.Store
	mapper     *mapper.Mapper
	translator mapper.Translator
	transfer   *transfer.Transferrer
	log        *slog.Logger
}

// New wires an Engine. In dry-run mode the sink is replaced by a logging
// no-op that returns simulated identifiers, and attachment payloads are not
// fetched; every other code path is identical to a live run.
func New(cfg types.Config, source Source, sink Sink, st *store.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	translator := mapper.NewRuleTranslator(cfg.Mappings)

	var fetcher transfer.Fetcher = source
	if cfg.Sync.DryRun {
		sink = newDryRunSink(log)
		fetcher = dryRunFetcher{}
	}

	return &Engine{
		cfg:        cfg,
		source:     source,
		sink:       sink,
		store:      st,
		mapper:     mapper.New(translator, cfg.Sync.OnUnmapped),
		translator: translator,
		transfer:   transfer.New(fetcher, sink, cfg.AttachmentMaxBytes()),
		log:        log,
	}
}

// InitialSync migrates the full work set of every configured project.
// Existing mappings are treated as possible-update candidates, which is what
// makes a rerun idempotent.
func (e *Engine) InitialSync(ctx context.Context) (map[string]*Stats, error) {
	return e.run(ctx, time.Time{}, true)
}

// SyncUpdates migrates tasks changed since the cutoff. A zero cutoff falls
// back to each project's stored watermark.
func (e *Engine) SyncUpdates(ctx context.Context, since time.Time) (map[string]*Stats, error) {
	return e.run(ctx, since, false)
}

// run executes one pass over all configured projects. A project failure
// (including a hierarchy cycle) aborts that project only; its error is
// reported in the Stats entry. Concurrency across projects is bounded by
// sync.concurrency; within a project processing stays sequential.
func (e *Engine) run(ctx context.Context, since time.Time, full bool) (map[string]*Stats, error) {
	runID := uuid.NewString()
	log := e.log.With("run_id", runID)

	var mu sync.Mutex
	results := make(map[string]*Stats, len(e.cfg.Projects))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Sync.Concurrency)

	for _, project := range e.cfg.Projects {
		g.Go(func() error {
			cutoff := since
			if !full && cutoff.IsZero() {
				stored, err := e.store.LastSync(project.MegaplanID)
				if err != nil {
					log.Error("reading watermark", "project", project.MegaplanID, "error", err)
				} else {
					cutoff = stored
				}
			}

			started := time.Now()
			log.Info("project pass started",
				"project", project.MegaplanID, "target", project.OpenProjectID,
				"since", cutoff, "dry_run", e.cfg.Sync.DryRun)

			stats, err := e.syncProject(ctx, log, project, cutoff)
			if err != nil {
				stats.Error = err.Error()
				log.Error("project pass aborted", "project", project.MegaplanID, "error", err)
			} else {
				if err := e.store.SetLastSync(project.MegaplanID, started, runID); err != nil {
					log.Error("recording watermark", "project", project.MegaplanID, "error", err)
				}
				log.Info("project pass finished", "project", project.MegaplanID,
					"created", stats.Created, "updated", stats.Updated,
					"unchanged", stats.Unchanged, "failed", stats.Failed)
			}

			mu.Lock()
			results[project.MegaplanID] = stats
			mu.Unlock()
			return ctx.Err()
		})
	}

	err := g.Wait()
	return results, err
}
