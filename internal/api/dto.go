package api

import (
	"github.com/starford/adrctl/internal/adrservice"
	"github.com/starford/adrctl/internal/models"
)

// CreateRecordRequest is the request body for creating a record.
type CreateRecordRequest = adrservice.CreateRequest

// ChangeStatusRequest is the request body for changing a record's status.
type ChangeStatusRequest struct {
	Status string `json:"status" example:"Accepted" validate:"required"`
}

// AddLinkRequest is the request body for recording a link on a record.
// The record named in the URL receives the link line.
type AddLinkRequest struct {
	Source   string `json:"source" example:"0005-new-name.md" validate:"required"`
	LinkType string `json:"link_type" example:"Superseded by" validate:"required"`
}

// RecordDetail is a record including its content.
type RecordDetail = models.Record

// RecordListResponse wraps a record listing.
type RecordListResponse struct {
	Records []models.Record `json:"records" validate:"required"`
	Total   int             `json:"total" example:"7" validate:"required"`
}
