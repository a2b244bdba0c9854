package service

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/cinealert/internal/utils"
)

// ReelService 从 Instagram 帖子里提取片名。
// 只取公开的 embed 页面文案，不下载视频，也不做音频分析。
type ReelService struct {
	client    *utils.HTTPClient
	geminiKey string
}

// NewReelService 创建 Instagram 文案服务
func NewReelService(geminiKey string) *ReelService {
	return &ReelService{
		client:    utils.NewHTTPClient(),
		geminiKey: geminiKey,
	}
}

// FetchPostCaption 抓取帖子的 embed 页面并解析文案
func (s *ReelService) FetchPostCaption(shortcode string) (string, error) {
	url := fmt.Sprintf("https://www.instagram.com/p/%s/embed/captioned/", shortcode)

	resp, err := s.client.Get(url)
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("请求返回状态码: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("解析 HTML 失败: %w", err)
	}

	caption := strings.TrimSpace(doc.Find(".Caption").Text())
	if caption == "" {
		// embed 页面改版时退而求其次，拿 og:title
		if content, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
			caption = strings.TrimSpace(content)
		}
	}
	if caption == "" {
		return "", fmt.Errorf("帖子中没有找到文案")
	}

	return caption, nil
}

// ExtractMovieTitles 用 LLM 从文案里识别片名，按出现顺序返回
func (s *ReelService) ExtractMovieTitles(caption string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Extract every movie title mentioned in the following social media caption. "+
			"Reply with one title per line, in their original language, nothing else. "+
			"If there are no movie titles, reply with exactly NONE.\n\nCaption:\n%s", caption)

	text, err := utils.GenerateGeminiText(s.geminiKey, "gemini-2.0-flash", prompt)
	if err != nil {
		return nil, err
	}

	return ParseTitleLines(text), nil
}

// ParseTitleLines 把 LLM 输出的逐行片名清洗成列表
func ParseTitleLines(text string) []string {
	var titles []string
	for _, line := range strings.Split(text, "\n") {
		title := strings.TrimSpace(line)
		title = strings.TrimLeft(title, "-•*0123456789.) ")
		title = strings.Trim(title, "\"")
		if title == "" || strings.EqualFold(title, "NONE") {
			continue
		}
		titles = append(titles, title)
	}
	return titles
}
