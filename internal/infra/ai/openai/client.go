package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/infra/ai/attachment"
)

const (
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 8192
)

type Client struct {
	*openai.Client
	model     string
	maxTokens int
	pdf       *attachment.PDFExtractor
}

// NewClient builds a chat client. An empty baseURL keeps the public endpoint.
func NewClient(apiKey, baseURL, model string, maxTokens int, pdf *attachment.PDFExtractor) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if pdf == nil {
		pdf = attachment.NewPDFExtractor(0)
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), model: model, maxTokens: maxTokens, pdf: pdf}
}

func (c *Client) Model() string { return c.model }

func (c *Client) Generate(ctx context.Context, p analysis.Prompt) (string, error) {
	user, err := c.userMessage(p)
	if err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			user,
		},
	}
	// reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = c.maxTokens
	} else {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		if isQuotaError(err) {
			return "", fmt.Errorf("%w: %v", analysis.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", analysis.ErrEmptyResponse
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", analysis.ErrEmptyResponse
	}
	return text, nil
}

func (c *Client) userMessage(p analysis.Prompt) (openai.ChatCompletionMessage, error) {
	att := p.Attachment
	switch {
	case att.IsImage():
		return openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: p.User},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: attachment.DataURL(att), Detail: openai.ImageURLDetailAuto},
				},
			},
		}, nil
	case att.IsPDF():
		text, err := c.pdf.Text(att.Data)
		if err != nil {
			return openai.ChatCompletionMessage{}, fmt.Errorf("read pdf attachment: %w", err)
		}
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: attachment.AppendDocument(p.User, att.Filename, text),
		}, nil
	default:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User}, nil
	}
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func isQuotaError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	return false
}
