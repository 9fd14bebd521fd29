package export

// Cut is one resolved EDL event: a source range within a physical clip.
type Cut struct {
	ClipName    string
	MediaPath   string
	SourceInMs  int
	SourceOutMs int
	Description string
}

type ExportRequest struct {
	SessionID   string  `json:"session_id"`
	ProjectName string  `json:"project_name"`
	FrameRate   float64 `json:"frame_rate"`
	OutputDir   string  `json:"output_dir"`
}

type ExportResponse struct {
	Status     string `json:"status"`
	OutputPath string `json:"output_path"`
	CutCount   int    `json:"cut_count"`
	DurationMs int    `json:"duration_ms"`
}
