package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/tempocut/tempocut-agent/internal/catalog"
	"github.com/tempocut/tempocut-agent/internal/sequence"
)

// ResolveCuts maps a repaired decision list onto the clip set it was
// generated against. Clip order must be the same ordering the prompt used.
// Every cut starts at source zero; a decision longer than its clip is
// clamped to the clip's length so the source range stays within the media.
func ResolveCuts(decisions sequence.DecisionList, clips []*catalog.Clip) ([]Cut, error) {
	cuts := make([]Cut, 0, len(decisions))
	for i, d := range decisions {
		if d.ClipIndex < 0 || d.ClipIndex >= len(clips) {
			return nil, fmt.Errorf("decision %d references clip %d of %d", i, d.ClipIndex, len(clips))
		}
		clip := clips[d.ClipIndex]

		outMs := int(math.Round(d.Duration * 1000))
		if clip.Duration > 0 {
			if clipMs := int(math.Round(clip.Duration * 1000)); outMs > clipMs {
				outMs = clipMs
			}
		}

		cuts = append(cuts, Cut{
			ClipName:    clip.Name,
			MediaPath:   clip.Path,
			SourceInMs:  0,
			SourceOutMs: outMs,
			Description: d.Description,
		})
	}
	return cuts, nil
}

func GenerateEDL(cuts []Cut, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordOffsetMs := 0
	for i, cut := range cuts {
		srcIn := msToTimecode(cut.SourceInMs, fps)
		srcOut := msToTimecode(cut.SourceOutMs, fps)
		recIn := msToTimecode(recordOffsetMs, fps)
		durationMs := cut.SourceOutMs - cut.SourceInMs
		recOut := msToTimecode(recordOffsetMs+durationMs, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", cut.ClipName),
			fmt.Sprintf("* MEDIA PATH:  %s", cut.MediaPath),
		)
		if cut.Description != "" {
			lines = append(lines, fmt.Sprintf("* COMMENT:  %s", cut.Description))
		}

		recordOffsetMs += durationMs
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
