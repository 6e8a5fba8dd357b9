package mapper

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// Mapper is a pure transformation from a source task (plus already-resolved
// parent and assignee target IDs) to a target work-package payload. It holds
// no connection state and never performs I/O.
type Mapper struct {
	translator Translator
	onUnmapped string // types.OnUnmappedFail or types.OnUnmappedOmit.
}

// New builds a Mapper around the given translator. onUnmapped decides what
// an unmappable field does: fail the record, or drop the field.
func New(translator Translator, onUnmapped string) *Mapper {
	return &Mapper{translator: translator, onUnmapped: onUnmapped}
}

// Map builds the creation/update payload for task. parentTargetID and
// assigneeTargetID are zero when unresolved. The returned omitted slice
// names fields dropped under the omit policy, so callers can attribute the
// loss in their report.
func (m *Mapper) Map(task *types.Task, projectID int64, parentTargetID, assigneeTargetID int64) (*types.WorkPackage, []string, error) {
	if task == nil {
		return nil, nil, errors.New("nil task")
	}

	wp := &types.WorkPackage{
		Subject:     task.Name,
		Description: task.Description,
		ProjectID:   projectID,
		AssigneeID:  assigneeTargetID,
		ParentID:    parentTargetID,
	}
	if wp.Subject == "" {
		wp.Subject = fmt.Sprintf("Task %s", task.ID)
	}
	if !task.StartDate.IsZero() {
		wp.StartDate = task.StartDate.Format("2006-01-02")
	}
	if !task.DueDate.IsZero() {
		wp.DueDate = task.DueDate.Format("2006-01-02")
	}

	var omitted []string

	if task.Status != "" {
		statusID, err := m.translator.TranslateStatus(task.Status)
		switch {
		case err == nil:
			wp.StatusID = statusID
		case m.omittable(err):
			omitted = append(omitted, "status")
		default:
			return nil, nil, err
		}
	}

	if task.Type != "" {
		typeID, err := m.translator.TranslateType(task.Type)
		switch {
		case err == nil:
			wp.TypeID = typeID
		case m.omittable(err):
			omitted = append(omitted, "type")
		default:
			return nil, nil, err
		}
	}

	return wp, omitted, nil
}

// omittable reports whether err is an unmappable-field error that the
// configured policy downgrades to a dropped field.
func (m *Mapper) omittable(err error) bool {
	var unmappable *types.UnmappableFieldError
	return errors.As(err, &unmappable) && m.onUnmapped == types.OnUnmappedOmit
}
