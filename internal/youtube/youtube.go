// Package youtube resolves a video URL to a directly playable audio stream
// URL by querying yt-dlp for the available formats and picking the best
// audio-only one.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

type Extractor struct {
	// Path to the yt-dlp binary.
	Path string
	// Optional Netscape cookie jar passed through to yt-dlp.
	CookiesFile string
	// Prefer the mp4a codec over opus even when opus is larger.
	PreferMP4A bool
}

type format struct {
	Format   string `json:"format"`
	ACodec   string `json:"acodec"`
	Filesize int64  `json:"filesize"`
	URL      string `json:"url"`
}

type videoInfo struct {
	Formats []format    `json:"formats"`
	Entries []videoInfo `json:"entries"`
}

// AudioURL returns the playable audio stream URL for a video, or an error
// when extraction fails or no usable audio-only format exists.
func (e *Extractor) AudioURL(ctx context.Context, videoURL string) (string, error) {
	args := []string{"-J", "--no-warnings", "--socket-timeout", "10"}
	if e.CookiesFile != "" {
		args = append(args, "--cookies", e.CookiesFile)
	}
	args = append(args, videoURL)

	cmd := exec.CommandContext(ctx, e.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("youtube: yt-dlp failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	var info videoInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return "", fmt.Errorf("youtube: parse yt-dlp output: %w", err)
	}
	// A playlist URL yields entries; take the first video.
	if len(info.Entries) > 0 {
		info = info.Entries[0]
	}

	audioURL := selectAudioURL(info.Formats, e.PreferMP4A)
	if audioURL == "" {
		return "", fmt.Errorf("youtube: no audio-only format found for %s", videoURL)
	}
	return audioURL, nil
}

// selectAudioURL picks the largest audio-only format per codec, then the
// larger of the two codecs, unless mp4a is preferred and available.
func selectAudioURL(formats []format, preferMP4A bool) string {
	type candidate struct {
		size int64
		url  string
	}
	var opus, mp4a candidate

	for _, f := range formats {
		if !strings.Contains(f.Format, "audio only") {
			continue
		}
		switch {
		case f.ACodec == "opus":
			if f.Filesize > opus.size {
				opus = candidate{f.Filesize, f.URL}
			}
		case strings.SplitN(f.ACodec, ".", 2)[0] == "mp4a":
			if f.Filesize > mp4a.size {
				mp4a = candidate{f.Filesize, f.URL}
			}
		}
	}

	audioURL := ""
	if opus.size > mp4a.size {
		audioURL = opus.url
	} else if mp4a.size > 0 {
		audioURL = mp4a.url
	}

	if audioURL != "" && preferMP4A {
		if mp4a.url != "" {
			audioURL = mp4a.url
		} else if opus.url != "" {
			audioURL = opus.url
		}
	}
	return audioURL
}
