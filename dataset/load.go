package dataset

import (
	"context"
	"fmt"

	"github.com/hupe1980/radbase/blobstore"
)

// Load reads the DefaultPath table of the container at path.
func Load(path string) (*Matrix, error) {
	return LoadTable(path, DefaultPath)
}

// LoadTable reads one table of the container at path.
//
// A missing file yields an error wrapping fs.ErrNotExist; a missing table
// yields ErrTableNotFound. Both name the offending path.
func LoadTable(path, table string) (*Matrix, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return f.Table(table)
}

// LoadBlob reads the DefaultPath table of a container stored as a blob.
func LoadBlob(ctx context.Context, store blobstore.BlobStore, name string) (*Matrix, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("dataset: open blob %s: %w", name, err)
	}
	defer func() { _ = blob.Close() }()

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("dataset: read blob %s: %w", name, err)
	}

	f, err := OpenBytes(name, data)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return f.Table(DefaultPath)
}
