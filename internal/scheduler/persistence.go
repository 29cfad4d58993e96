package scheduler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// persistedJob is the on-disk shape — Job minus its unexported
// heap/cancellation internals, which JSON already skips via the `-` tag
// and unexported-field rules respectively.
type persistedJob = Job

// save writes the given jobs to path atomically (write to a temp file in
// the same directory, then rename) so a crash mid-write never corrupts
// the durable log spec.md §4.6 requires.
func save(path string, jobs []*Job) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// load reads the durable log, reviving any job caught mid-run by a crash
// back to pending (spec.md §4.6: "running jobs interrupted by crash are
// revived as pending").
func load(path string) ([]*Job, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var jobs []*persistedJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, err
	}

	for _, j := range jobs {
		if j.State == JobRunning {
			j.State = JobPending
			j.StartedAt = time.Time{}
		}
		j.heapIndex = 0
	}
	return jobs, nil
}
