package workflows

import (
	"errors"
	"testing"

	"github.com/tendant/media-pipeline/pkg/pipeline"
)

func TestRenditionFailure(t *testing.T) {
	if err := renditionFailure(nil, nil); err != nil {
		t.Errorf("both renditions succeeded, got %v", err)
	}

	encodeErr := errors.New("ffmpeg failed")
	for _, tt := range []struct {
		name           string
		err720, err480 error
	}{
		{"720p failed", encodeErr, nil},
		{"480p failed", nil, encodeErr},
		{"both failed", encodeErr, encodeErr},
	} {
		err := renditionFailure(tt.err720, tt.err480)
		if err == nil {
			t.Errorf("%s: want a stage failure", tt.name)
			continue
		}
		if !pipeline.Retryable(err) {
			t.Errorf("%s: a failed rendition should be retryable, got %v", tt.name, err)
		}
	}
}

func TestReportProgress(t *testing.T) {
	// Without a monitor the callback is nil; reporting must be a no-op.
	wctx := &WorkflowContext{}
	wctx.ReportProgress(50, "encoded_720p", "")

	type report struct {
		percent int
		phase   string
	}
	var got []report
	wctx.progress = func(percent int, phase, message string) {
		got = append(got, report{percent, phase})
	}
	wctx.ReportProgress(10, "probed", "")
	wctx.ReportProgress(90, "compressed", "done")

	if len(got) != 2 || got[0] != (report{10, "probed"}) || got[1] != (report{90, "compressed"}) {
		t.Errorf("reports = %v", got)
	}
}
