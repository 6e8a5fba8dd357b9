// Package integration exercises the full sync pipeline: real HTTP clients
// against in-process fake trackers, a real SQLite mapping store, and the
// engine on top.
package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// mpTask is one task row served by the fake Megaplan API.
type mpTask struct {
	ID       string
	Project  string
	Name     string
	Status   string
	Assignee string
	Parent   string
	Updated  time.Time
}

// megaplanServer fakes the subset of the Megaplan API the client uses.
type megaplanServer struct {
	mu       sync.Mutex
	tasks    []mpTask
	comments map[string][]map[string]any // task ID -> comment objects
	files    map[string][]map[string]any // task ID -> file objects
	payloads map[string]string           // file ID -> content
	users    map[string]map[string]any   // user ID -> profile
	srv      *httptest.Server
}

func newMegaplanServer(t *testing.T) *megaplanServer {
	t.Helper()
	m := &megaplanServer{
		comments: make(map[string][]map[string]any),
		files:    make(map[string][]map[string]any),
		payloads: make(map[string]string),
		users:    make(map[string]map[string]any),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks", m.handleTasks)
	mux.HandleFunc("GET /tasks/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		m.writeItems(w, m.comments[r.PathValue("id")])
	})
	mux.HandleFunc("GET /tasks/{id}/files", func(w http.ResponseWriter, r *http.Request) {
		m.writeItems(w, m.files[r.PathValue("id")])
	})
	mux.HandleFunc("GET /files/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		payload, ok := m.payloads[r.PathValue("id")]
		m.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, payload)
	})
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		var items []map[string]any
		m.mu.Lock()
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if profile, ok := m.users[id]; ok {
				items = append(items, profile)
			}
		}
		m.mu.Unlock()
		m.writeItems(w, items)
	})

	m.srv = httptest.NewServer(mux)
	t.Cleanup(m.srv.Close)
	return m
}

func (m *megaplanServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	var since time.Time
	if raw := r.URL.Query().Get("updated_after"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "bad updated_after", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	var items []map[string]any
	m.mu.Lock()
	for _, task := range m.tasks {
		if task.Project != project {
			continue
		}
		if !since.IsZero() && task.Updated.Before(since) {
			continue
		}
		items = append(items, map[string]any{
			"id":             task.ID,
			"project_id":     task.Project,
			"name":           task.Name,
			"status":         task.Status,
			"responsible_id": task.Assignee,
			"parent_id":      task.Parent,
			"updated_at":     task.Updated.Format(time.RFC3339),
		})
	}
	m.mu.Unlock()
	m.writeItems(w, items)
}

func (m *megaplanServer) writeItems(w http.ResponseWriter, items []map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{"items": items},
	})
}

// addFile registers an attachment descriptor and its payload.
func (m *megaplanServer) addFile(taskID, fileID, name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[taskID] = append(m.files[taskID], map[string]any{
		"id": fileID, "name": name, "size": len(content),
	})
	m.payloads[fileID] = content
}

func (m *megaplanServer) addComment(taskID, commentID, author, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[taskID] = append(m.comments[taskID], map[string]any{
		"id": commentID, "author_id": author, "text": text,
	})
}

// touchTask bumps a task's updated_at on the source side.
func (m *megaplanServer) touchTask(taskID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == taskID {
			m.tasks[i].Updated = at
		}
	}
}

// opWorkPackage is one work package recorded by the fake OpenProject API.
type opWorkPackage struct {
	ID      int64
	Subject string
	Body    string // raw request JSON
}

// openProjectServer fakes the subset of the OpenProject v3 API the client
// uses, counting every write.
type openProjectServer struct {
	mu           sync.Mutex
	nextID       int64
	workPackages map[int64]*opWorkPackage
	createOrder  []string // subjects in creation order
	patched      map[int64]int
	comments     map[int64][]string
	attachments  map[int64][]string // filenames
	users        map[string]int64   // login -> id
	srv          *httptest.Server
}

func newOpenProjectServer(t *testing.T) *openProjectServer {
	t.Helper()
	o := &openProjectServer{
		nextID:       1000,
		workPackages: make(map[int64]*opWorkPackage),
		patched:      make(map[int64]int),
		comments:     make(map[int64][]string),
		attachments:  make(map[int64][]string),
		users:        make(map[string]int64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/projects", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"_embedded": {"elements": [{"id": 3, "identifier": "migrated", "name": "Migrated"}]}}`)
	})
	mux.HandleFunc("POST /api/v3/work_packages", o.handleCreate)
	mux.HandleFunc("PATCH /api/v3/work_packages/{id}", o.handlePatch)
	mux.HandleFunc("POST /api/v3/work_packages/{id}/activities", o.handleComment)
	mux.HandleFunc("POST /api/v3/work_packages/{id}/attachments", o.handleAttachment)
	mux.HandleFunc("GET /api/v3/users", o.handleFindUser)
	mux.HandleFunc("POST /api/v3/users", o.handleCreateUser)

	o.srv = httptest.NewServer(mux)
	t.Cleanup(o.srv.Close)
	return o
}

func (o *openProjectServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	o.mu.Lock()
	o.nextID++
	wp := &opWorkPackage{
		ID:      o.nextID,
		Subject: gjson.GetBytes(body, "subject").String(),
		Body:    string(body),
	}
	o.workPackages[wp.ID] = wp
	o.createOrder = append(o.createOrder, wp.Subject)
	o.mu.Unlock()
	fmt.Fprintf(w, `{"id": %d}`, wp.ID)
}

func (o *openProjectServer) handlePatch(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var id int64
	fmt.Sscanf(r.PathValue("id"), "%d", &id)

	o.mu.Lock()
	defer o.mu.Unlock()
	wp, ok := o.workPackages[id]
	if !ok {
		http.NotFound(w, r)
		return
	}
	wp.Subject = gjson.GetBytes(body, "subject").String()
	wp.Body = string(body)
	o.patched[id]++
	fmt.Fprintf(w, `{"id": %d}`, id)
}

func (o *openProjectServer) handleComment(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var id int64
	fmt.Sscanf(r.PathValue("id"), "%d", &id)

	o.mu.Lock()
	o.nextID++
	o.comments[id] = append(o.comments[id], gjson.GetBytes(body, "comment.raw").String())
	commentID := o.nextID
	o.mu.Unlock()
	fmt.Fprintf(w, `{"id": %d}`, commentID)
}

func (o *openProjectServer) handleAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var id int64
	fmt.Sscanf(r.PathValue("id"), "%d", &id)

	o.mu.Lock()
	o.nextID++
	o.attachments[id] = append(o.attachments[id], header.Filename)
	attachmentID := o.nextID
	o.mu.Unlock()
	fmt.Fprintf(w, `{"id": %d}`, attachmentID)
}

func (o *openProjectServer) handleFindUser(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	id, ok := o.users[r.URL.Query().Get("login")]
	o.mu.Unlock()
	if !ok {
		fmt.Fprint(w, `{"_embedded": {"elements": []}}`)
		return
	}
	fmt.Fprintf(w, `{"_embedded": {"elements": [{"id": %d}]}}`, id)
}

func (o *openProjectServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	login := gjson.GetBytes(body, "login").String()
	o.mu.Lock()
	o.nextID++
	id := o.nextID
	o.users[login] = id
	o.mu.Unlock()
	fmt.Fprintf(w, `{"id": %d}`, id)
}

func (o *openProjectServer) createCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.createOrder)
}

func (o *openProjectServer) patchCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	total := 0
	for _, n := range o.patched {
		total += n
	}
	return total
}

// findBySubject returns the recorded work package with the given subject.
func (o *openProjectServer) findBySubject(subject string) *opWorkPackage {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, wp := range o.workPackages {
		if wp.Subject == subject {
			return wp
		}
	}
	return nil
}

// pipelineConfig builds a Config pointed at the two fake servers.
func pipelineConfig(t *testing.T, mp *megaplanServer, op *openProjectServer, dryRun bool) types.Config {
	t.Helper()
	return types.Config{
		Megaplan:    types.MegaplanConfig{BaseURL: mp.srv.URL, Username: "sync", Password: "secret"},
		OpenProject: types.OpenProjectConfig{BaseURL: op.srv.URL, Username: "apikey", Password: "token", DefaultUserID: 1},
		Projects:    []types.ProjectMapping{{MegaplanID: "1001", OpenProjectID: 3}},
		Sync: types.SyncOptions{
			PageSize:        50,
			AttachmentMaxMB: 1,
			SyncComments:    true,
			SyncAttachments: true,
			DryRun:          dryRun,
			Concurrency:     1,
			OnUnmapped:      types.OnUnmappedOmit,
		},
		Mappings: types.MappingRules{
			Status:        map[string]string{"assigned": "1", "done": "12"},
			DefaultStatus: "1",
		},
		StateDB: filepath.Join(t.TempDir(), "state.db"),
	}
}
