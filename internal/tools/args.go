package tools

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"av1clip/internal/clip"
	"av1clip/internal/geometry"
	"av1clip/internal/media/ffprobe"
)

// encoderIOArgs are appended to every encoder command and excluded from the
// recorded SVT-AV1_ARGS tag.
var encoderIOArgs = []string{"-i", "stdin", "-b", "stdout"}

// ExtractionArgs builds the mpv command producing the lossless intermediate
// at output: x264 crf 0 video with burned subtitles and Opus audio.
func ExtractionArgs(req clip.Request, output string) []string {
	args := []string{
		"--no-config", "--loop=no", "--hr-seek=yes",
		"--hr-seek-demuxer-offset=0", "--sub-auto=exact",
		"--sub-visibility=yes", "--sub-fix-timing=no",
		req.Source, "--of=matroska", "--o=" + output,
		"--vid=" + req.Video.String(),
		"--aid=" + req.Audio.String(),
		"--sid=" + req.Subtitle.String(),
		"--ovc=libx264", "--ovcopts-add=preset=ultrafast",
		"--ovcopts-add=crf=0",
		"--oac=libopus", "--oacopts-add=b=" + strconv.Itoa(req.AudioBitrate),
	}
	if start := strings.TrimSpace(req.Start); start != "" {
		args = append(args, "--start="+start)
	}
	if end := strings.TrimSpace(req.End); end != "" {
		args = append(args, "--end="+end)
	}
	return args
}

// FramePipeArgs builds the ffmpeg command that writes the intermediate's first
// video stream to stdout as yuv4mpegpipe, scaling to square pixels at the
// target size when required.
func FramePipeArgs(artifact string, target geometry.Target) []string {
	args := []string{"-hide_banner", "-v", "error", "-i", artifact, "-map", "0:v:0"}
	if target.NeedsScaling {
		args = append(args, "-vf", "scale=w="+strconv.Itoa(target.Width)+":h="+strconv.Itoa(target.Height)+":flags=lanczos,setsar=1/1")
	}
	return append(args, "-strict", "-1", "-f", "yuv4mpegpipe", "-")
}

// EncoderArgs builds the SvtAv1EncApp command reading y4m from stdin and
// writing the elementary stream to stdout.
func EncoderArgs(tuning clip.Tuning, desc ffprobe.StreamDescriptor, target geometry.Target) []string {
	scd := 0
	if tuning.SceneChangeDetection {
		scd = 1
	}
	args := []string{
		"--preset", strconv.Itoa(tuning.Preset),
		"--tile-rows", strconv.Itoa(tuning.TileRows),
		"--tile-columns", strconv.Itoa(tuning.TileColumns),
		"--crf", strconv.Itoa(tuning.CRF),
		"--fps-num", strconv.Itoa(desc.FrameRate.Num),
		"--fps-denom", strconv.Itoa(desc.FrameRate.Den),
		"--film-grain", strconv.Itoa(tuning.FilmGrain),
		"--scd", strconv.Itoa(scd),
		"--input-depth", strconv.Itoa(desc.BitDepth),
		"-w", strconv.Itoa(target.Width),
		"-h", strconv.Itoa(target.Height),
	}
	return append(args, encoderIOArgs...)
}

// EncoderSettings strips the i/o flags from encoder arguments, leaving the
// settings recorded in the output metadata.
func EncoderSettings(encoderArgs []string) []string {
	n := len(encoderArgs) - len(encoderIOArgs)
	if n < 0 {
		n = 0
	}
	return append([]string(nil), encoderArgs[:n]...)
}

// MuxMetadata describes the tags written to the final container.
type MuxMetadata struct {
	Source       string
	Range        string
	Versions     Versions
	EncoderArgs  []string
	// Audio is false when the intermediate carries no audio stream; the
	// audio map and bitrate tag are then omitted.
	Audio        bool
	AudioBitrate int
	Now          time.Time
}

// MuxArgs builds the ffmpeg command that copies the encoded video from stdin
// and the audio from the intermediate into dest, dropping chapters.
func MuxArgs(artifact, dest string, meta MuxMetadata) []string {
	base := filepath.Base(meta.Source)
	now := meta.Now.UTC()
	rng := meta.Range
	if rng == "" {
		rng = "complete"
	}
	args := []string{
		"-hide_banner", "-v", "error", "-y", "-i", "-", "-i", artifact,
		"-map", "0:v:0", "-c:v", "copy",
	}
	if meta.Audio {
		args = append(args, "-map", "1:a:0", "-c:a", "copy")
	}
	args = append(args, "-map_chapters", "-1")
	args = appendTag(args, "-metadata", "TITLE", base+" ["+rng+"]")
	args = appendTag(args, "-metadata", "creation_time", now.Format(time.RFC3339Nano))
	args = appendTag(args, "-metadata", "COMMENT", "Clipped with av1clip using mpv "+meta.Versions.MPV+
		", SVT-AV1 "+meta.Versions.SvtAV1+", ffmpeg version "+meta.Versions.FFmpeg)
	args = appendTag(args, "-metadata", "SOURCE-FILE", base)
	args = appendTag(args, "-metadata", "SOURCE-RANGE", rng)
	args = appendTag(args, "-metadata", "DATE", now.Format(time.DateTime))
	args = appendTag(args, "-metadata:s:v:0", "SVT-AV1_ARGS", strings.Join(EncoderSettings(meta.EncoderArgs), " "))
	if meta.Audio {
		args = appendTag(args, "-metadata:s:a:0", "BITRATE", strconv.Itoa(meta.AudioBitrate)+" VBR")
	}
	return append(args, dest)
}

// appendTag adds one metadata flag. Values are NFC normalised so decomposed
// file names from some filesystems tag consistently.
func appendTag(args []string, flag, key, value string) []string {
	return append(args, flag, key+"="+norm.NFC.String(value))
}
