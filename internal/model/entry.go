package model

import "time"

// Entry is a titled note that may belong to a parent entry and carry one attachment.
// It carries no database-specific tags and is shared by the HTTP, service and storage layers.
type Entry struct {
	ID             string    `json:"id"`
	ParentID       *string   `json:"parent_id,omitempty" validate:"omitempty,uuid"`
	Title          string    `json:"title" validate:"required,min=1,max=200"`
	Body           string    `json:"body" validate:"max=10000"`
	AttachmentPath string    `json:"attachment_path,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	// Children holds the direct children when the entry was loaded with them.
	Children []Entry `json:"children,omitempty"`
}

// HasAttachment reports whether an object is stored for the entry.
func (e Entry) HasAttachment() bool {
	return e.AttachmentPath != ""
}
