package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const defaultUserAgent = "github-actions-upscale"

// DownloadError 图片下载返回非 2xx 状态码
type DownloadError struct {
	URL        string
	StatusCode int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download image: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Downloader 图片下载器，将图片保存到临时目录
type Downloader struct {
	dir        string
	httpClient *http.Client
	userAgent  string
}

// Option 配置 Downloader
type Option func(*Downloader)

// WithHTTPClient 替换默认的 HTTP 客户端
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.httpClient = c }
}

// WithUserAgent 设置请求的 User-Agent
func WithUserAgent(ua string) Option {
	return func(d *Downloader) { d.userAgent = ua }
}

// NewDownloader 创建图片下载器
// dir: 临时目录，Fetch 时按需创建
func NewDownloader(dir string, opts ...Option) *Downloader {
	d := &Downloader{
		dir: dir,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dir 返回临时目录
func (d *Downloader) Dir() string {
	return d.dir
}

// Fetch 下载单个图片到 dir/input<ext>，返回本地路径
// 重复调用会覆盖之前的文件
func (d *Downloader) Fetch(ctx context.Context, url string) (string, error) {
	// 1. 确保目录存在
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	localPath := filepath.Join(d.dir, "input"+Extension(url))

	// 2. 下载图片
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	// 3. 保存到本地
	file, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return localPath, nil
}

// Clear 删除临时目录
func (d *Downloader) Clear() error {
	return os.RemoveAll(d.dir)
}
