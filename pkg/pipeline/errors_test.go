package pipeline

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"transient", Transient(errors.New("encoder crashed")), true},
		{"wrapped transient", fmt.Errorf("stage: %w", Transient(errors.New("timeout"))), true},
		{"dependency missing", &DependencyMissingError{Commands: []string{"ffmpeg"}}, false},
		{"transient wrapping dependency", Transient(&DependencyMissingError{Commands: []string{"gs"}}), false},
		{"validation", &ValidationError{Reason: "bad extension"}, false},
		{"not found", fmt.Errorf("load: %w", ErrNotFound), false},
		{"transient wrapping not found", Transient(ErrNotFound), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTransientNil(t *testing.T) {
	if Transient(nil) != nil {
		t.Error("Transient(nil) should stay nil")
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []ReplicationStatus{ReplicationCompleted, ReplicationFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []ReplicationStatus{ReplicationPending, ReplicationUploading} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"video", "audio", "pdf"} {
		if _, err := ParseKind(valid); err != nil {
			t.Errorf("ParseKind(%q) error = %v", valid, err)
		}
	}
	if _, err := ParseKind("image"); err == nil {
		t.Error("ParseKind(image) should fail")
	}
}

func TestMediaJobForKind(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindVideo, JobTranscodeVideo},
		{KindAudio, JobCompressAudio},
		{KindPDF, JobOptimizePDF},
	}
	for _, tt := range tests {
		if got := MediaJobForKind(tt.kind); got != tt.want {
			t.Errorf("MediaJobForKind(%s) = %s, want %s", tt.kind, got, tt.want)
		}
	}
}
