package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// snapshotPrefix is the key prefix under which merged-view snapshots are
// stored.
const snapshotPrefix = "snapshots/"

// multipartThreshold is the payload size above which snapshots are uploaded
// via the multipart manager instead of a single PutObject.
const multipartThreshold = 8 * 1024 * 1024

// SnapshotArchive persists reconciliation snapshots as JSON objects keyed by
// date and pass ID, and reads them back for the API.
//
// Key schema:
//
//	snapshots/2006/01/02/{passID}.json
type SnapshotArchive struct {
	writer *Writer
	reader *Reader
}

// NewSnapshotArchive creates a SnapshotArchive over the given client.
func NewSnapshotArchive(c *Client) *SnapshotArchive {
	return &SnapshotArchive{
		writer: NewWriter(c),
		reader: NewReader(c),
	}
}

// SnapshotKey builds the object key for a pass taken at the given time.
func SnapshotKey(at time.Time, passID string) string {
	return fmt.Sprintf("%s%s/%s.json", snapshotPrefix, at.UTC().Format("2006/01/02"), passID)
}

// Save uploads a snapshot payload under the key for the given pass. The
// payload is any JSON-serializable value; in practice the reconciler's
// result.
func (a *SnapshotArchive) Save(ctx context.Context, at time.Time, passID string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal snapshot %s: %w", passID, err)
	}

	key := SnapshotKey(at, passID)
	if len(data) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(data), minPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return "", err
	}
	return key, nil
}

// List enumerates stored snapshots, optionally restricted to one UTC day.
// Pass the zero time to list everything.
func (a *SnapshotArchive) List(ctx context.Context, day time.Time) ([]domain.BlobInfo, error) {
	prefix := snapshotPrefix
	if !day.IsZero() {
		prefix += day.UTC().Format("2006/01/02") + "/"
	}
	return a.reader.List(ctx, prefix)
}

// Open returns the raw JSON body of one stored snapshot. The caller must
// close the returned reader.
func (a *SnapshotArchive) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return a.reader.Get(ctx, key)
}
