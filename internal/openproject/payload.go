package openproject

import (
	"fmt"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

type link struct {
	Href string `json:"href"`
}

type workPackageLinks struct {
	Project  link  `json:"project"`
	Status   *link `json:"status,omitempty"`
	Type     *link `json:"type,omitempty"`
	Assignee *link `json:"assignee,omitempty"`
	Parent   *link `json:"parent,omitempty"`
}

type rawText struct {
	Raw string `json:"raw"`
}

type workPackagePayload struct {
	Subject     string           `json:"subject"`
	Description rawText          `json:"description"`
	StartDate   string           `json:"startDate,omitempty"`
	DueDate     string           `json:"dueDate,omitempty"`
	Links       workPackageLinks `json:"_links"`
}

// buildPayload translates the neutral work-package form into the v3 wire
// shape. Zero-valued fields stay absent so the target keeps its defaults.
func buildPayload(wp *types.WorkPackage) workPackagePayload {
	payload := workPackagePayload{
		Subject:     wp.Subject,
		Description: rawText{Raw: wp.Description},
		StartDate:   wp.StartDate,
		DueDate:     wp.DueDate,
		Links: workPackageLinks{
			Project: link{Href: fmt.Sprintf("/api/v3/projects/%d", wp.ProjectID)},
		},
	}
	if wp.StatusID != "" {
		payload.Links.Status = &link{Href: "/api/v3/statuses/" + wp.StatusID}
	}
	if wp.TypeID != "" {
		payload.Links.Type = &link{Href: "/api/v3/types/" + wp.TypeID}
	}
	if wp.AssigneeID != 0 {
		payload.Links.Assignee = &link{Href: fmt.Sprintf("/api/v3/users/%d", wp.AssigneeID)}
	}
	if wp.ParentID != 0 {
		payload.Links.Parent = &link{Href: fmt.Sprintf("/api/v3/work_packages/%d", wp.ParentID)}
	}
	return payload
}
