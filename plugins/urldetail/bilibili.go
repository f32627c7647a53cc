package urldetail

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tokmz/qibot/pkg/cache"
	"github.com/tokmz/qibot/pkg/onebot"
	"github.com/tokmz/qibot/pkg/request"
)

// BilibiliAPI 视频信息接口
const BilibiliAPI = "https://api.bilibili.com/x/web-interface/view"

var (
	bilibiliAV = regexp.MustCompile(`https?://(?:www\.)?bilibili\.com/video/av(\d+)`)
	bilibiliBV = regexp.MustCompile(`https?://(?:www\.)?bilibili\.com/video/(BV[a-zA-Z0-9_-]{10})`)
	// 移动端与国际版短链接，跳转后得到完整链接
	bilibiliShort = []*regexp.Regexp{
		regexp.MustCompile(`https?://(?:www\.)?b23\.tv/[a-zA-Z0-9_-]{7}`),
		regexp.MustCompile(`https?://(?:www\.)?bili2233\.cn/[a-zA-Z0-9_-]{7}`),
	}
)

// videoID av 号对应 aid，BV 号对应 bvid
type videoID struct {
	param string
	value string
}

func parseVideoID(text string) (videoID, bool) {
	if m := bilibiliAV.FindStringSubmatch(text); m != nil {
		return videoID{param: "aid", value: m[1]}, true
	}
	if m := bilibiliBV.FindStringSubmatch(text); m != nil {
		return videoID{param: "bvid", value: m[1]}, true
	}
	return videoID{}, false
}

func parseShortURL(text string) string {
	for _, re := range bilibiliShort {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// BilibiliVideo 视频详情
type BilibiliVideo struct {
	Title   string `json:"title"`
	Pic     string `json:"pic"`
	PubDate int64  `json:"pubdate"`
	Owner   struct {
		Name string `json:"name"`
	} `json:"owner"`
}

// Bilibili 哔哩哔哩视频链接识别
type Bilibili struct {
	client *request.Client
	loader *cache.Loader
	ttl    time.Duration
}

// NewBilibili 创建识别器
func NewBilibili(client *request.Client, loader *cache.Loader, ttl time.Duration) *Bilibili {
	return &Bilibili{client: client, loader: loader, ttl: ttl}
}

func (b *Bilibili) Name() string { return "bilibili" }

// Recognize 识别 av/BV 链接，短链接先跟随跳转
func (b *Bilibili) Recognize(ctx context.Context, text string) ([]onebot.Segment, error) {
	id, ok := parseVideoID(text)
	if !ok {
		short := parseShortURL(text)
		if short == "" {
			return nil, nil
		}
		resp, err := b.client.Get(ctx, short).Send()
		if err != nil {
			return nil, err
		}
		if id, ok = parseVideoID(resp.URL); !ok {
			return nil, nil
		}
	}

	key := "urldetail:bilibili:" + id.param + ":" + id.value
	video, err := cache.Remember(ctx, b.loader, key, b.ttl, func(ctx context.Context) (*BilibiliVideo, error) {
		return b.fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	pub := time.Unix(video.PubDate, 0).Local().Format(time.DateTime)
	return []onebot.Segment{
		onebot.Image(video.Pic),
		onebot.Text(fmt.Sprintf("标题：%s\n作者：%s\n发布时间：%s", video.Title, video.Owner.Name, pub)),
	}, nil
}

func (b *Bilibili) fetch(ctx context.Context, id videoID) (*BilibiliVideo, error) {
	body, err := request.Bytes(b.client.Get(ctx, BilibiliAPI).Query(id.param, id.value))
	if err != nil {
		return nil, err
	}
	res := gjson.GetManyBytes(body, "code", "message", "data")
	if code := res[0].Int(); code != 0 {
		return nil, ErrDetail.WithMessage(fmt.Sprintf("urldetail: bilibili code %d: %s", code, res[1].String()))
	}
	if !res[2].IsObject() {
		return nil, ErrDetail.WithMessage("urldetail: bilibili response has no data")
	}
	var video BilibiliVideo
	if err := json.Unmarshal([]byte(res[2].Raw), &video); err != nil {
		return nil, ErrDetail.WithError(err)
	}
	return &video, nil
}
