package models

import "time"

type Folder struct {
	ID        string
	UserID    string
	Name      string
	ParentID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
