package comment

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxErrorLength 错误评论中保留的最大字符数
const MaxErrorLength = 200

// FormatScale 格式化缩放倍数：2 -> "2"，3.5 -> "3.5"
func FormatScale(scale float64) string {
	return strconv.FormatFloat(scale, 'f', -1, 64)
}

// FormatSuccess 成功评论，包含倍数和 raw 直链
func FormatSuccess(scale float64, branch, branchURL, rawURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":white_check_mark: Upscaled image (scale %sx) was created and saved to branch `%s`.\n\n", FormatScale(scale), branch)
	fmt.Fprintf(&b, "Direct link (raw): %s\n\n", rawURL)
	if branchURL != "" {
		fmt.Fprintf(&b, "To download the file, open the raw link or browse the [`%s` branch](%s).", branch, branchURL)
	} else {
		fmt.Fprintf(&b, "To download the file, open the raw link or browse the `%s` branch.", branch)
	}
	return b.String()
}

// FormatNoImage issue 中没有图片时的警告评论
func FormatNoImage() string {
	return ":warning: No image found in the issue body. Please upload an image (png, jpg, jpeg or webp) to the issue body first."
}

// FormatError 错误评论，消息截断到 MaxErrorLength 个字符
func FormatError(msg string) string {
	return ":x: An error occurred during upscale: " + Truncate(msg, MaxErrorLength)
}

// Truncate 按字符（rune）截断
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
