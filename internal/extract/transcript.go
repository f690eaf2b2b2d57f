package extract

import (
	"context"
	"fmt"
	"regexp"

	"github.com/go-resty/resty/v2"
)

const (
	transcriptEndpoint = "https://youtube-transcriptor.p.rapidapi.com/transcript"
	transcriptHost     = "youtube-transcriptor.p.rapidapi.com"
)

var videoIDRe = regexp.MustCompile(`(?:v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// TranscriptExtractor fetches English transcripts for YouTube links through
// the RapidAPI transcriptor.
type TranscriptExtractor struct {
	client   *resty.Client
	endpoint string
}

// NewTranscriptExtractor creates a transcript extractor.
func NewTranscriptExtractor(apiKey string) *TranscriptExtractor {
	client := resty.New()
	client.SetHeader("x-rapidapi-key", apiKey)
	client.SetHeader("x-rapidapi-host", transcriptHost)
	return &TranscriptExtractor{client: client, endpoint: transcriptEndpoint}
}

// VideoID pulls the 11-character video id out of a YouTube URL.
func VideoID(url string) (string, error) {
	m := videoIDRe.FindStringSubmatch(url)
	if m == nil {
		return "", Permanent(fmt.Sprintf("no video id in %q", url), nil)
	}
	return m[1], nil
}

type transcriptEntry struct {
	TranscriptionAsText string `json:"transcriptionAsText"`
}

// Extract returns the full transcript text for a video URL. A video without
// an available transcript is a permanent failure.
func (e *TranscriptExtractor) Extract(ctx context.Context, url string) (string, error) {
	videoID, err := VideoID(url)
	if err != nil {
		return "", err
	}

	var entries []transcriptEntry
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"video_id": videoID,
			"lang":     "en",
		}).
		SetResult(&entries).
		Get(e.endpoint)
	if err != nil {
		return "", fmt.Errorf("transcript request for %s: %w", videoID, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("transcript request for %s: status %d", videoID, resp.StatusCode())
	}

	if len(entries) == 0 || entries[0].TranscriptionAsText == "" {
		return "", Permanent(fmt.Sprintf("no transcript available for %s", videoID), nil)
	}
	return entries[0].TranscriptionAsText, nil
}
