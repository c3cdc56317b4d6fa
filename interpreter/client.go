// Package interpreter 把自然语言转换为流水线文档或单个动作
package interpreter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xhttp"
	"github.com/xiaoshicae/xvision/xlog"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client OpenAI 兼容的 chat/completions 客户端
type Client struct {
	c    *Config
	http *resty.Client
}

func New(c *Config) *Client {
	c = configMergeDefault(c)
	hc := xhttp.New(&xhttp.Config{Timeout: c.Timeout, RetryCount: *c.RetryCount})
	hc.AddRetryCondition(func(r *resty.Response, err error) bool {
		return r != nil && r.StatusCode() >= http.StatusInternalServerError
	})
	return &Client{c: c, http: hc}
}

// Enabled 是否配置了 API Key
func (cl *Client) Enabled() bool {
	return cl.c.APIKey != ""
}

// Complete 单轮对话，返回首个候选的内容
func (cl *Client) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if !cl.Enabled() {
		return "", xerror.Config("interpreter", "complete", "AI 客户端未初始化，请配置 SPARK_API_KEY")
	}
	req := chatRequest{
		Model:       cl.c.Model,
		Messages:    []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}},
		Temperature: cl.c.Temperature,
		MaxTokens:   maxTokens,
	}
	out := &chatResponse{}
	resp, err := cl.http.R().SetContext(ctx).
		SetAuthToken(cl.c.APIKey).
		SetBody(req).
		SetResult(out).
		SetError(out).
		Post(strings.TrimRight(cl.c.BaseURL, "/") + "/chat/completions")
	if err != nil {
		xlog.Error(ctx, "[interpreter] call model failed, err=[%v]", err)
		return "", friendlyErr(err, 0)
	}
	if resp.IsError() {
		msg := resp.Status()
		if out.Error != nil {
			msg = out.Error.Message
		}
		xlog.Error(ctx, "[interpreter] model returned %d, msg=[%s]", resp.StatusCode(), msg)
		return "", friendlyErr(errors.New(msg), resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", xerror.Newf("interpreter", "complete", "model returned no choice")
	}
	content := out.Choices[0].Message.Content
	xlog.Info(ctx, "[interpreter] model responded", xlog.KV("model", cl.c.Model), xlog.KV("length", len(content)))
	return content, nil
}

// friendlyErr 认证失败与超时给出可操作的提示
func friendlyErr(err error, status int) error {
	var ne net.Error
	switch {
	case status == http.StatusUnauthorized || strings.Contains(err.Error(), "HMAC"):
		return xerror.Newf("interpreter", "complete", "API Key 认证失败，请检查 API Key 是否正确、是否为有效密钥、账户是否有余额, detail=[%v]", err)
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) || strings.Contains(strings.ToLower(err.Error()), "timeout"):
		return xerror.Newf("interpreter", "complete", "API 调用超时，请检查网络连接或稍后重试, detail=[%v]", err)
	case errors.Is(err, context.Canceled):
		return xerror.Wrap(xerror.KindCancelled, "interpreter", "complete", err)
	}
	return xerror.New("interpreter", "complete", err)
}

// StripFences 去掉 markdown 代码块标记
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
