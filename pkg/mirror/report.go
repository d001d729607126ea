package mirror

import (
	"fmt"
	"io"

	"github.com/glorpus-work/chanmirror/pkg/model"
)

// Failure describes one record that ended in StatusFailed, for the operator
// and for downstream automation.
type Failure struct {
	ID     string
	URL    string
	Reason string
}

// Report is the structured summary of one run.
type Report struct {
	Total     int
	Completed int
	Skipped   int
	Failed    int
	Corrupt   int
	Missing   int
	Bytes     int64
	Failures  []Failure
}

// Summarize reduces a manifest to the operator-facing report. Failures are
// listed in name/version order so repeated runs produce stable output.
func Summarize(manifest *model.MirrorManifest) Report {
	r := Report{Total: len(manifest.Results)}

	failedRecords := make([]*model.PackageRecord, 0)
	reasons := make(map[string]string)
	for _, res := range manifest.Results {
		switch res.Status {
		case model.StatusComplete:
			r.Completed++
			r.Bytes += res.Bytes
		case model.StatusSkipped:
			r.Skipped++
		case model.StatusFailed:
			r.Failed++
			failedRecords = append(failedRecords, res.Record)
			if res.Err != nil {
				reasons[res.Record.ID()] = res.Err.Error()
			}
		case model.StatusCorrupt:
			r.Corrupt++
		case model.StatusMissing:
			r.Missing++
		}
	}

	model.SortRecords(failedRecords)
	for _, rec := range failedRecords {
		r.Failures = append(r.Failures, Failure{
			ID:     rec.ID(),
			URL:    rec.URL.String(),
			Reason: reasons[rec.ID()],
		})
	}
	return r
}

// OK reports whether the run succeeded: zero failed records.
func (r Report) OK() bool {
	return r.Failed == 0
}

// Render writes the human-readable summary. A failing run always enumerates
// which packages failed and why, never a bare count.
func (r Report) Render(w io.Writer) {
	fmt.Fprintf(w, "Mirror summary: %d total, %d downloaded, %d already valid, %d failed\n",
		r.Total, r.Completed, r.Skipped, r.Failed)
	if r.Corrupt > 0 {
		fmt.Fprintf(w, "  corrupt on disk: %d\n", r.Corrupt)
	}
	if r.Missing > 0 {
		fmt.Fprintf(w, "  missing from mirror: %d\n", r.Missing)
	}
	if r.Bytes > 0 {
		fmt.Fprintf(w, "  downloaded bytes: %d\n", r.Bytes)
	}
	if len(r.Failures) > 0 {
		fmt.Fprintln(w, "Failed packages:")
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  %s (%s): %s\n", f.ID, f.URL, f.Reason)
		}
	}
}
