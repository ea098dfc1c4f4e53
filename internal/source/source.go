// Package source lists and fetches order exports from a folder, either in an
// object store bucket or on the local filesystem.
package source

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"orderaudit/internal/domain"
	"orderaudit/internal/naming"
	"orderaudit/internal/port"
)

// validFolder rejects ids that are empty or could escape the source root.
func validFolder(folderID string) error {
	if folderID == "" || !filepath.IsLocal(folderID) || strings.Contains(folderID, `\`) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidFolderID, folderID)
	}
	return nil
}

// validName rejects export names that are not a plain file name.
func validName(name string) error {
	if name == "" || name != path.Base(name) || name == "." || name == ".." || strings.Contains(name, `\`) {
		return fmt.Errorf("%w: %q", domain.ErrNotFound, name)
	}
	return nil
}

type objectStoreSource struct {
	store  port.ObjectStorage
	bucket string
	filter string
}

// NewObjectStoreSource reads folder "<folderID>/" of bucket.
func NewObjectStoreSource(store port.ObjectStorage, bucket, nameFilter string) port.ExportSource {
	return &objectStoreSource{store: store, bucket: bucket, filter: nameFilter}
}

func (s *objectStoreSource) ListExports(ctx context.Context, folderID string) ([]port.ExportObject, error) {
	if err := validFolder(folderID); err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(folderID, "/") + "/"
	objects, err := s.store.List(ctx, s.bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("objectStoreSource.ListExports: %w", err)
	}

	out := make([]port.ExportObject, 0, len(objects))
	for _, o := range objects {
		name := strings.TrimPrefix(o.Key, prefix)
		if name == "" || strings.Contains(name, "/") || !naming.IsOrderExport(name, s.filter) {
			continue
		}
		out = append(out, port.ExportObject{Name: name, Size: o.Size, LastModified: o.LastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *objectStoreSource) FetchExport(ctx context.Context, folderID, name string) ([]byte, error) {
	if err := validFolder(folderID); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := s.store.Download(ctx, s.bucket, strings.TrimSuffix(folderID, "/")+"/"+name)
	if err != nil {
		return nil, fmt.Errorf("objectStoreSource.FetchExport: %w", err)
	}
	return data, nil
}

type localSource struct {
	root   string
	filter string
}

// NewLocalSource reads folder "<root>/<folderID>" on the local filesystem.
func NewLocalSource(root, nameFilter string) port.ExportSource {
	return &localSource{root: root, filter: nameFilter}
}

func (s *localSource) ListExports(_ context.Context, folderID string) ([]port.ExportObject, error) {
	if err := validFolder(folderID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, folderID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("localSource.ListExports: %w", err)
	}

	out := make([]port.ExportObject, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !naming.IsOrderExport(e.Name(), s.filter) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("localSource.ListExports stat: %w", err)
		}
		out = append(out, port.ExportObject{Name: e.Name(), Size: info.Size(), LastModified: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *localSource) FetchExport(_ context.Context, folderID, name string) ([]byte, error) {
	if err := validFolder(folderID); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, folderID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("localSource.FetchExport: %w", err)
	}
	return data, nil
}
