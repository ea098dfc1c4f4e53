package port

import (
	"context"
	"time"
)

// ExportObject is one export file available in a source folder.
type ExportObject struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ExportSource retrieves the raw exports of a folder.
type ExportSource interface {
	ListExports(ctx context.Context, folderID string) ([]ExportObject, error)
	FetchExport(ctx context.Context, folderID, name string) ([]byte, error)
}
