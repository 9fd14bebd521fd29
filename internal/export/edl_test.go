package export

import (
	"strings"
	"testing"

	"github.com/tempocut/tempocut-agent/internal/catalog"
	"github.com/tempocut/tempocut-agent/internal/sequence"
)

func TestResolveCuts(t *testing.T) {
	clips := []*catalog.Clip{
		{Name: "a.mp4", Path: "/clips/a.mp4", Duration: 10},
		{Name: "b.mp4", Path: "/clips/b.mp4", Duration: 5},
	}
	decisions := sequence.DecisionList{
		{ClipIndex: 1, Duration: 2.5, Description: "drop hits"},
		{ClipIndex: 0, Duration: 1.0, Description: "wide"},
	}

	cuts, err := ResolveCuts(decisions, clips)
	if err != nil {
		t.Fatalf("ResolveCuts() error = %v", err)
	}

	if len(cuts) != 2 {
		t.Fatalf("got %d cuts, want 2", len(cuts))
	}
	if cuts[0].ClipName != "b.mp4" || cuts[0].SourceOutMs != 2500 {
		t.Errorf("first cut = %+v, want b.mp4 out 2500ms", cuts[0])
	}
	if cuts[1].MediaPath != "/clips/a.mp4" || cuts[1].SourceOutMs != 1000 {
		t.Errorf("second cut = %+v, want a.mp4 out 1000ms", cuts[1])
	}
}

func TestResolveCuts_ClampsToClipLength(t *testing.T) {
	clips := []*catalog.Clip{{Name: "short.mp4", Path: "/short.mp4", Duration: 2}}
	decisions := sequence.DecisionList{{ClipIndex: 0, Duration: 9.0, Description: "too long"}}

	cuts, err := ResolveCuts(decisions, clips)
	if err != nil {
		t.Fatalf("ResolveCuts() error = %v", err)
	}
	if cuts[0].SourceOutMs != 2000 {
		t.Errorf("SourceOutMs = %d, want clamped 2000", cuts[0].SourceOutMs)
	}
}

func TestResolveCuts_IndexOutOfRange(t *testing.T) {
	clips := []*catalog.Clip{{Name: "a.mp4", Duration: 5}}
	decisions := sequence.DecisionList{{ClipIndex: 3, Duration: 1.0, Description: "x"}}

	if _, err := ResolveCuts(decisions, clips); err == nil {
		t.Fatal("expected error for out-of-range clip index")
	}
}

func TestGenerateEDL_SingleCut(t *testing.T) {
	cuts := []Cut{{
		ClipName:    "Intro",
		MediaPath:   "/media/intro.mp4",
		SourceInMs:  0,
		SourceOutMs: 2000,
		Description: "opening shot",
	}}

	edl := GenerateEDL(cuts, "Project One", 30.0)

	if !strings.Contains(edl, "TITLE: Project One") {
		t.Fatalf("missing title in EDL: %q", edl)
	}
	if !strings.Contains(edl, "FCM: NON-DROP FRAME") {
		t.Fatalf("missing non-drop-frame FCM: %q", edl)
	}
	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("missing event line: %q", edl)
	}
	if !strings.Contains(edl, "* FROM CLIP NAME:  Intro") {
		t.Fatalf("missing clip name comment: %q", edl)
	}
	if !strings.Contains(edl, "* MEDIA PATH:  /media/intro.mp4") {
		t.Fatalf("missing media path comment: %q", edl)
	}
	if !strings.Contains(edl, "* COMMENT:  opening shot") {
		t.Fatalf("missing description comment: %q", edl)
	}
}

func TestGenerateEDL_RecordOffsetsAccumulate(t *testing.T) {
	cuts := []Cut{
		{ClipName: "Clip A", MediaPath: "/a.mp4", SourceInMs: 0, SourceOutMs: 1000},
		{ClipName: "Clip B", MediaPath: "/b.mp4", SourceInMs: 0, SourceOutMs: 1500},
	}

	edl := GenerateEDL(cuts, "Multi", 30.0)

	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:01:00 00:00:00:00 00:00:01:00") {
		t.Fatalf("first event line mismatch: %q", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:00:00:00 00:00:01:15 00:00:01:00 00:00:02:15") {
		t.Fatalf("second event line mismatch or bad record offset: %q", edl)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	cuts := []Cut{{ClipName: "Clip", MediaPath: "/x.mp4", SourceInMs: 0, SourceOutMs: 1000}}
	edl := GenerateEDL(cuts, "Drop", 29.97)

	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop frame FCM, got: %q", edl)
	}
}

func TestMsToTimecode(t *testing.T) {
	tests := []struct {
		name string
		ms   int
		fps  int
		want string
	}{
		{name: "zero", ms: 0, fps: 30, want: "00:00:00:00"},
		{name: "one second", ms: 1000, fps: 30, want: "00:00:01:00"},
		{name: "fractional second", ms: 500, fps: 30, want: "00:00:00:15"},
		{name: "one minute", ms: 60000, fps: 30, want: "00:01:00:00"},
		{name: "one hour", ms: 3600000, fps: 30, want: "01:00:00:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := msToTimecode(tc.ms, tc.fps)
			if got != tc.want {
				t.Fatalf("msToTimecode(%d, %d) = %q, want %q", tc.ms, tc.fps, got, tc.want)
			}
		})
	}
}
