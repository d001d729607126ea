package model

// MirrorStatus is the lifecycle state of one record during a mirror run.
type MirrorStatus string

const (
	// StatusPending means the record has not been processed yet.
	StatusPending MirrorStatus = "pending"
	// StatusSkipped means a valid artifact was already present on disk.
	StatusSkipped MirrorStatus = "skipped"
	// StatusFetching means a download is in flight.
	StatusFetching MirrorStatus = "fetching"
	// StatusVerifying means a downloaded artifact is being hashed.
	StatusVerifying MirrorStatus = "verifying"
	// StatusRetrying means the last attempt failed and another will be made.
	StatusRetrying MirrorStatus = "retrying"
	// StatusComplete means the artifact was fetched, verified and placed.
	StatusComplete MirrorStatus = "complete"
	// StatusFailed means all attempts were exhausted without a valid artifact.
	StatusFailed MirrorStatus = "failed"
	// StatusCorrupt means an on-disk artifact did not match its expected hash.
	// It is a transient observation: the coordinator re-fetches corrupt
	// artifacts, and verify-only runs report them for remediation.
	StatusCorrupt MirrorStatus = "corrupt"
	// StatusMissing means a verify-only run found no artifact on disk.
	StatusMissing MirrorStatus = "missing"
)

// MirrorResult is the final outcome for one record.
type MirrorResult struct {
	Record   *PackageRecord
	Status   MirrorStatus
	Attempts int   // fetch attempts performed (0 for skipped records)
	Bytes    int64 // bytes written for fresh downloads
	Err      error // non-nil only for StatusFailed
}

// MirrorManifest collects the results of a single run. It exists only in
// memory; the channel directory itself is the durable state.
type MirrorManifest struct {
	Results []MirrorResult
}

// Add appends a result. Not safe for concurrent use; the coordinator
// aggregates worker results over a channel before calling this.
func (m *MirrorManifest) Add(r MirrorResult) {
	m.Results = append(m.Results, r)
}

// CountByStatus returns how many results carry the given status.
func (m *MirrorManifest) CountByStatus(status MirrorStatus) int {
	n := 0
	for _, r := range m.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the results that ended in StatusFailed.
func (m *MirrorManifest) Failed() []MirrorResult {
	var failed []MirrorResult
	for _, r := range m.Results {
		if r.Status == StatusFailed {
			failed = append(failed, r)
		}
	}
	return failed
}
