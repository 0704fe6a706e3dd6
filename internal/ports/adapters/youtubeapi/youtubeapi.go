package youtubeapi

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/domain/videoid"
	"github.com/forPelevin/shortsmith/internal/types"
)

// Adapter fetches metadata through the YouTube Data API v3.
type Adapter struct {
	svc *youtube.Service
}

func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Adapter, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Adapter{svc: svc}, nil
}

func (a *Adapter) FetchInfo(ctx context.Context, url string) (types.VideoInfo, error) {
	id, err := videoid.FromURL(url)
	if err != nil {
		return types.VideoInfo{}, err
	}
	if strings.HasPrefix(id, "url-") {
		return types.VideoInfo{}, apperr.InvalidInput("youtube info", "%q is not a YouTube video URL", url)
	}

	resp, err := a.svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("youtube videos.list: %w", err)
	}
	if len(resp.Items) == 0 {
		return types.VideoInfo{}, apperr.NotFound("youtube info", "video %q not found", id)
	}
	v := resp.Items[0]

	out := types.VideoInfo{VideoID: v.Id}
	if s := v.Snippet; s != nil {
		out.Title = s.Title
		out.Author = s.ChannelTitle
		out.Description = s.Description
		out.UploadDate = uploadDate(s.PublishedAt)
		out.Thumbnail = bestThumbnail(s.Thumbnails)
	}
	if cd := v.ContentDetails; cd != nil {
		d, err := parseISODuration(cd.Duration)
		if err != nil {
			return types.VideoInfo{}, fmt.Errorf("youtube info: %w", err)
		}
		out.Duration = d.Seconds()
	}
	if st := v.Statistics; st != nil {
		out.Views = int64(st.ViewCount)
	}
	return out, nil
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

// uploadDate formats RFC 3339 timestamps as YYYYMMDD, the yt-dlp convention.
func uploadDate(publishedAt string) string {
	t, err := time.Parse(time.RFC3339, publishedAt)
	if err != nil {
		return ""
	}
	return t.UTC().Format("20060102")
}

var isoDurationRE = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// parseISODuration handles the PnDTnHnMnS subset the API returns.
func parseISODuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	m := isoDurationRE.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}
	var total time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute}
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, err
		}
		total += time.Duration(n) * u
	}
	if m[4] != "" {
		sec, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return 0, err
		}
		total += time.Duration(sec * float64(time.Second))
	}
	return total, nil
}
