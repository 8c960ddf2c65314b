package media

import (
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/vidgate/vidgate/internal/store"
)

func extractFrame(inputPath, outputPath string) error {
	cmd := exec.Command("ffmpeg",
		"-ss", "2",
		"-i", inputPath,
		"-frames:v", "1",
		"-vf", "scale='min(640,iw)':-2",
		"-q:v", "5",
		"-y",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, string(output))
	}
	return nil
}

// GenerateThumbnail extracts a frame from the uploaded media into the
// video's rank directory and records the thumbnail filename against the
// video. Runs in the background after upload; failures leave the record
// without a thumbnail, which the listing tolerates.
func GenerateThumbnail(st *store.Store, g *Gateway, videoID, thumbName string) {
	v, err := st.GetVideo(videoID)
	if err != nil {
		log.Printf("thumbnail: video %s gone before generation: %v", videoID, err)
		return
	}

	thumbPath := g.Dir(v.Rank) + string(os.PathSeparator) + thumbName
	if err := extractFrame(g.MediaPath(v), thumbPath); err != nil {
		log.Printf("thumbnail: ffmpeg failed for video %s: %v", videoID, err)
		return
	}

	// Re-read before writing: an admin edit may have landed meanwhile. If
	// the rank moved, the thumbnail follows it.
	v, err = st.GetVideo(videoID)
	if err != nil {
		os.Remove(thumbPath)
		return
	}
	if current := g.Dir(v.Rank) + string(os.PathSeparator) + thumbName; current != thumbPath {
		if err := os.Rename(thumbPath, current); err != nil {
			log.Printf("thumbnail: failed to move thumbnail for video %s: %v", videoID, err)
			os.Remove(thumbPath)
			return
		}
	}
	v.Thumbnail = thumbName
	if err := st.UpdateVideo(videoID, v); err != nil {
		log.Printf("thumbnail: failed to record thumbnail for video %s: %v", videoID, err)
		os.Remove(thumbPath)
	}
}
