package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// UnknownVersion is reported when a tool's version cannot be determined.
const UnknownVersion = "unknown"

// Version runs the requirement's version command and returns the configured
// output field. Tools without VersionArgs report UnknownVersion.
func Version(ctx context.Context, req Requirement) (string, error) {
	if len(req.VersionArgs) == 0 {
		return UnknownVersion, nil
	}
	cmd := exec.CommandContext(ctx, req.Command, req.VersionArgs...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return UnknownVersion, fmt.Errorf("%s version: %w", req.Name, err)
	}
	return versionField(string(output), req.VersionField)
}

func versionField(output string, index int) (string, error) {
	fields := strings.Fields(output)
	if index < 0 || index >= len(fields) {
		return UnknownVersion, fmt.Errorf("version output %q has no field %d", firstLine(output), index)
	}
	return fields[index], nil
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
