package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"ariacut/internal/config"
)

// Requirement defines an external binary ariacut shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Path is the resolved executable when Available.
	Path   string
	Detail string
}

// MediaRequirements lists the binaries the download, cut and render stages run.
func MediaRequirements(cfg config.Media) []Requirement {
	return []Requirement{
		{Name: "yt-dlp", Command: cfg.YtDlpBinary, Description: "Required to download performances"},
		{Name: "FFmpeg", Command: cfg.FFmpegBinary, Description: "Required to extract audio, cut and render"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary, Description: "Required for media inspection"},
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
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the unavailable, non-optional entries.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
