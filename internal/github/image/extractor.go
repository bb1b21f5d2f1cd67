package image

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// 支持的图片扩展名：png / jpg / jpeg / webp（不区分大小写）
var imageURLRe = regexp.MustCompile(`(?i)https?://[^\s<>"'()\[\]]+\.(?:png|jpe?g|webp)`)

// FirstImageURL 返回文本中第一个（最左侧）图片 URL
// 未找到时 ok 为 false，这不是错误
func FirstImageURL(text string) (string, bool) {
	match := imageURLRe.FindString(text)
	if match == "" {
		return "", false
	}
	return match, true
}

// ExtractImageURLs 按出现顺序返回文本中的所有图片 URL（去重）
func ExtractImageURLs(text string) []string {
	var urls []string
	seen := make(map[string]bool)

	for _, match := range imageURLRe.FindAllString(text, -1) {
		if !seen[match] {
			urls = append(urls, match)
			seen[match] = true
		}
	}
	return urls
}

// Extension 提取 URL 路径的扩展名（小写），缺省为 ".jpg"
func Extension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if idx := strings.IndexAny(p, "?#"); idx != -1 {
		p = p[:idx]
	}

	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		ext = ".jpg"
	}
	return ext
}
