// internal/app/features/administrations/types.go
package administrations

import (
	"time"

	"github.com/dalemusser/cohorthub/internal/domain/models"
)

// administrationPayload is the JSON body accepted by create and update.
type administrationPayload struct {
	ID          string              `json:"id" validate:"omitempty,max=128"`
	Name        string              `json:"name" validate:"required,max=256"`
	PublicName  string              `json:"publicName" validate:"omitempty,max=256"`
	Orgs        models.OrgRefSet    `json:"orgs"`
	Assessments []assessmentPayload `json:"assessments" validate:"required,min=1,dive"`
	DateOpened  time.Time           `json:"dateOpened" validate:"required"`
	DateClosed  time.Time           `json:"dateClosed" validate:"required,gtfield=DateOpened"`
	Sequential  bool                `json:"sequential"`
	TestData    bool                `json:"testData"`
	DemoData    bool                `json:"demoData"`
	Legal       *models.Legal       `json:"legal"`
	CreatedBy   string              `json:"createdBy" validate:"required,max=128"`
}

type assessmentPayload struct {
	TaskID      string                       `json:"taskId" validate:"required,max=128"`
	VariantID   string                       `json:"variantId" validate:"omitempty,max=128"`
	VariantName string                       `json:"variantName" validate:"omitempty,max=256"`
	Params      map[string]interface{}       `json:"params"`
	Conditions  *models.AssessmentConditions `json:"conditions"`
}

// toModel converts the payload into the stored document shape.
func (p administrationPayload) toModel() models.Administration {
	a := models.Administration{
		ID:         p.ID,
		Name:       p.Name,
		PublicName: p.PublicName,
		Orgs:       p.Orgs,
		DateOpened: p.DateOpened,
		DateClosed: p.DateClosed,
		Sequential: p.Sequential,
		TestData:   p.TestData,
		DemoData:   p.DemoData,
		Legal:      p.Legal,
		CreatedBy:  p.CreatedBy,
	}
	a.Orgs.Normalize()
	for _, as := range p.Assessments {
		a.Assessments = append(a.Assessments, models.Assessment{
			TaskID:      as.TaskID,
			VariantID:   as.VariantID,
			VariantName: as.VariantName,
			Params:      as.Params,
			Conditions:  as.Conditions,
		})
	}
	return a
}

// administrationResponse is the JSON shape returned by the read endpoints.
type administrationResponse struct {
	models.Administration
	PendingSyncTasks int64 `json:"pendingSyncTasks"`
}

// listResponse is one keyset page of administrations. Cursors are opaque;
// pass them back as ?after= or ?before= to move through the list.
type listResponse struct {
	Administrations []models.Administration `json:"administrations"`
	PrevCursor      string                  `json:"prevCursor,omitempty"`
	NextCursor      string                  `json:"nextCursor,omitempty"`
}
