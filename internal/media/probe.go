package media

import (
	"log"
	"os/exec"
	"strconv"
	"strings"

	"github.com/vidgate/vidgate/internal/store"
)

// ProbeDuration reads the media duration with ffprobe and records it so
// watch descriptors can report seek bounds. Best effort, run in the
// background after upload: a record without a duration is still servable.
func ProbeDuration(st *store.Store, g *Gateway, videoID string) {
	v, err := st.GetVideo(videoID)
	if err != nil {
		return
	}

	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		g.MediaPath(v),
	)
	output, err := cmd.Output()
	if err != nil {
		log.Printf("probe: ffprobe failed for %s: %v", videoID, err)
		return
	}

	durationFloat, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		log.Printf("probe: unparsable duration for %s: %v", videoID, err)
		return
	}
	duration := int(durationFloat)
	if duration <= 0 {
		return
	}

	v, err = st.GetVideo(videoID)
	if err != nil {
		return
	}
	v.Duration = duration
	if err := st.UpdateVideo(videoID, v); err != nil {
		log.Printf("probe: failed to record duration for %s: %v", videoID, err)
	}
}
