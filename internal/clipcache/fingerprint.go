package clipcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"av1clip/internal/clip"
)

// Fingerprint is the hex digest naming a cached intermediate.
type Fingerprint string

// String implements fmt.Stringer.
func (f Fingerprint) String() string { return string(f) }

// Compute digests the cache-relevant fields of req. Each field is length
// prefixed so adjacent values cannot run together.
func Compute(req clip.Request) Fingerprint {
	fields := []string{
		req.AbsSource(),
		req.Video.String(),
		req.Audio.String(),
		req.Subtitle.String(),
		req.Start,
		req.End,
		strconv.Itoa(req.AudioBitrate),
	}
	h := sha256.New()
	for _, field := range fields {
		h.Write([]byte(strconv.Itoa(len(field))))
		h.Write([]byte{':'})
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return Fingerprint(hex.EncodeToString(sum[:16]))
}
