package urldetail

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tokmz/qibot/pkg/cache"
	"github.com/tokmz/qibot/pkg/onebot"
	"github.com/tokmz/qibot/pkg/request"
)

// YouTubeAPI Data API v3 视频接口
const YouTubeAPI = "https://www.googleapis.com/youtube/v3/videos"

var youtubeVideo = []*regexp.Regexp{
	regexp.MustCompile(`https?://(?:www\.)?(?:youtube\.com/(?:watch\?v=|embed/)|youtu\.be/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`https?://(?:www\.)?(?:youtube\.com/shorts/|youtu\.be/)([a-zA-Z0-9_-]{11})`),
}

// 缩略图从大到小
var thumbnailPaths = []string{
	"thumbnails.maxres.url",
	"thumbnails.standard.url",
	"thumbnails.high.url",
	"thumbnails.medium.url",
	"thumbnails.default.url",
}

func parseYouTubeID(text string) string {
	for _, re := range youtubeVideo {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// YouTubeVideo 视频详情
type YouTubeVideo struct {
	Title        string    `json:"title"`
	ChannelTitle string    `json:"channel_title"`
	Thumbnail    string    `json:"thumbnail"`
	PublishedAt  time.Time `json:"published_at"`
}

// YouTube 视频链接识别
type YouTube struct {
	client *request.Client
	loader *cache.Loader
	ttl    time.Duration
	key    string
}

// NewYouTube 创建识别器
func NewYouTube(client *request.Client, loader *cache.Loader, ttl time.Duration, key string) *YouTube {
	return &YouTube{client: client, loader: loader, ttl: ttl, key: key}
}

func (y *YouTube) Name() string { return "youtube" }

// Recognize 识别 watch/embed/shorts/youtu.be 链接，视频不存在时不回复
func (y *YouTube) Recognize(ctx context.Context, text string) ([]onebot.Segment, error) {
	id := parseYouTubeID(text)
	if id == "" {
		return nil, nil
	}
	video, err := cache.Remember(ctx, y.loader, "urldetail:youtube:"+id, y.ttl, func(ctx context.Context) (*YouTubeVideo, error) {
		return y.fetch(ctx, id)
	})
	if err != nil || video == nil {
		return nil, err
	}

	var segments []onebot.Segment
	if video.Thumbnail != "" {
		segments = append(segments, onebot.Image(video.Thumbnail))
	}
	text = fmt.Sprintf("标题：%s\n作者：%s\n发布时间：%s",
		video.Title, video.ChannelTitle, video.PublishedAt.Local().Format(time.DateTime))
	return append(segments, onebot.Text(text)), nil
}

func (y *YouTube) fetch(ctx context.Context, id string) (*YouTubeVideo, error) {
	body, err := request.Bytes(y.client.Get(ctx, YouTubeAPI).
		Query("part", "snippet").
		Query("id", id).
		Query("key", y.key))
	if err != nil {
		return nil, err
	}
	items := gjson.GetBytes(body, "items")
	if !items.IsArray() {
		return nil, ErrDetail.WithMessage("urldetail: youtube response has no items")
	}
	snippet := items.Get("0.snippet")
	if !snippet.Exists() {
		return nil, nil
	}

	published, err := time.Parse(time.RFC3339, snippet.Get("publishedAt").String())
	if err != nil {
		return nil, ErrDetail.WithError(err)
	}
	video := &YouTubeVideo{
		Title:        snippet.Get("title").String(),
		ChannelTitle: snippet.Get("channelTitle").String(),
		PublishedAt:  published,
	}
	for _, path := range thumbnailPaths {
		if url := snippet.Get(path).String(); url != "" {
			video.Thumbnail = url
			break
		}
	}
	return video, nil
}
