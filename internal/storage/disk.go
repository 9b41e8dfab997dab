package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Stats summarizes what is stored on disk.
type Stats struct {
	Documents int64 `json:"documents"`
	Chunks    int64 `json:"chunks"`
	DiskBytes int64 `json:"disk_bytes"`
}

// CollectStats counts stored rows and measures the database files (including
// the WAL and shared-memory siblings) plus any extra paths such as output dirs.
func CollectStats(ctx context.Context, s Storage, dbPath string, extra ...string) (Stats, error) {
	var st Stats
	var err error
	if st.Documents, err = s.CountDocuments(ctx); err != nil {
		return st, fmt.Errorf("failed to count documents: %w", err)
	}
	if st.Chunks, err = s.CountChunks(ctx); err != nil {
		return st, fmt.Errorf("failed to count chunks: %w", err)
	}
	paths := append([]string{dbPath, dbPath + "-wal", dbPath + "-shm"}, extra...)
	if st.DiskBytes, err = DiskUsageBytes(paths...); err != nil {
		return st, fmt.Errorf("failed to measure disk usage: %w", err)
	}
	return st, nil
}

// DiskUsageBytes returns the total size of the given files and directories.
// Missing paths count as zero.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return 0, err
		}
	}
	return total, nil
}
