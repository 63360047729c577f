package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"av1clip/internal/config"
)

// Requirement defines an external dependency av1clip relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs and VersionField describe how to read the tool's version:
	// the whitespace-separated field at VersionField of the command's output.
	VersionArgs  []string
	VersionField int
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the tools the clip pipeline launches.
func Requirements(tools config.Tools) []Requirement {
	return []Requirement{
		{
			Name:         "mpv",
			Command:      tools.MPV,
			Description:  "Extracts the trimmed intermediate with burned subtitles",
			VersionArgs:  []string{"--version"},
			VersionField: 1,
		},
		{
			Name:         "ffmpeg",
			Command:      tools.FFmpeg,
			Description:  "Feeds raw frames to the encoder and muxes the result",
			VersionArgs:  []string{"-version"},
			VersionField: 2,
		},
		{
			Name:        "ffprobe",
			Command:     tools.FFprobe,
			Description: "Reads stream metadata from the intermediate",
		},
		{
			Name:         "SVT-AV1",
			Command:      tools.SvtAV1,
			Description:  "Encodes the AV1 video stream",
			VersionArgs:  []string{"--version"},
			VersionField: 1,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
