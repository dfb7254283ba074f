package domain

import "time"

// Document carries the metadata of a document owned by a user.
type Document struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Language    string
	CreateDate  time.Time
	UpdateDate  time.Time
	DeleteDate  *time.Time
}

// File references a stored file attached to a document.
type File struct {
	ID         string
	DocumentID *string
	UserID     string
	Name       string
	MimeType   string
	Size       int64
	CreateDate time.Time
	DeleteDate *time.Time
}
