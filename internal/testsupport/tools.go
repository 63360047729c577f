package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"av1clip/internal/config"
)

// ProbeJSON is an ffprobe payload for a 640x480, 2:1 SAR, 24000/1001 fps
// 8-bit intermediate with one Opus track.
const ProbeJSON = `{"streams":[` +
	`{"index":0,"codec_type":"video","codec_name":"h264","width":640,"height":480,` +
	`"r_frame_rate":"24000/1001","sample_aspect_ratio":"2:1","bits_per_raw_sample":"8","pix_fmt":"yuv420p"},` +
	`{"index":1,"codec_type":"audio","codec_name":"opus"}],` +
	`"format":{"filename":"x.mkv","duration":"30.0"}}`

// VideoOnlyProbeJSON is ProbeJSON without the audio track, as probed from an
// intermediate extracted with --aid=no.
const VideoOnlyProbeJSON = `{"streams":[` +
	`{"index":0,"codec_type":"video","codec_name":"h264","width":640,"height":480,` +
	`"r_frame_rate":"24000/1001","sample_aspect_ratio":"2:1","bits_per_raw_sample":"8","pix_fmt":"yuv420p"}],` +
	`"format":{"filename":"x.mkv","duration":"30.0","size":"4096"}}`

// FakeTools describes shell stand-ins for the media tools. Each field holds
// the body of a /bin/sh script; empty fields use the default behaviour.
// Every script appends "<tool> <args>" to the invocation log.
type FakeTools struct {
	MPV     string
	FFmpeg  string
	FFprobe string
	SvtAV1  string
}

const (
	defaultMPV = `for a in "$@"; do
  case "$a" in --o=*) out="${a#--o=}";; esac
done
printf 'lossless-intermediate' > "$out"
`
	defaultFFmpeg = `for a in "$@"; do
  if [ "$a" = yuv4mpegpipe ]; then printf 'YUV4MPEG2 frames'; exit 0; fi
  last="$a"
done
cat > "$last"
`
	defaultSvtAV1 = "cat\n"
)

// InstallTools writes the fake tools into a bin directory under the config's
// base dir, points cfg.Tools at them, and returns the invocation log path.
func InstallTools(t testing.TB, cfg *config.Config, fakes FakeTools) string {
	t.Helper()

	binDir := filepath.Join(BaseDir(cfg), "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	logPath := filepath.Join(BaseDir(cfg), "invocations.log")

	probe := fakes.FFprobe
	if probe == "" {
		probe = "cat <<'JSON'\n" + ProbeJSON + "\nJSON\n"
	}
	cfg.Tools.MPV = writeTool(t, binDir, "mpv", logPath, "mpv v0.38.0-test", fallback(fakes.MPV, defaultMPV))
	cfg.Tools.FFmpeg = writeTool(t, binDir, "ffmpeg", logPath, "ffmpeg version 7.1-test", fallback(fakes.FFmpeg, defaultFFmpeg))
	cfg.Tools.FFprobe = writeTool(t, binDir, "ffprobe", logPath, "", probe)
	cfg.Tools.SvtAV1 = writeTool(t, binDir, "SvtAv1EncApp", logPath, "SVT-AV1 v2.3.0-test", fallback(fakes.SvtAV1, defaultSvtAV1))
	return logPath
}

// Invocations returns the logged invocations of tool.
func Invocations(t testing.TB, logPath, tool string) []string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read invocation log: %v", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, tool+" ") {
			out = append(out, line)
		}
	}
	return out
}

func writeTool(t testing.TB, dir, name, logPath, version, body string) string {
	t.Helper()
	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	if version != "" {
		script.WriteString(`case "$1" in --version|-version) echo '` + version + `'; exit 0;; esac` + "\n")
	}
	script.WriteString(`echo "` + name + ` $*" >> '` + logPath + "'\n")
	script.WriteString(body)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script.String()), 0o755); err != nil {
		t.Fatalf("write fake %s: %v", name, err)
	}
	return path
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
