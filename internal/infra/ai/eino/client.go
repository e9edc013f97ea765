package eino

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/infra/ai/attachment"
)

// Client drives any OpenAI-compatible endpoint through an eino chat model.
type Client struct {
	chatModel model.BaseChatModel
	model     string
	limiter   *rate.Limiter
	pdf       *attachment.PDFExtractor
}

type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	// RPM caps outgoing calls; zero means unlimited.
	RPM int
}

func NewClient(ctx context.Context, cfg Config, pdf *attachment.PDFExtractor) (*Client, error) {
	mc := &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	}
	if cfg.MaxTokens > 0 {
		mt := cfg.MaxTokens
		mc.MaxTokens = &mt
	}
	cm, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return NewWithModel(cm, cfg.Model, cfg.RPM, pdf), nil
}

// NewWithModel wraps an existing chat model.
func NewWithModel(cm model.BaseChatModel, modelName string, rpm int, pdf *attachment.PDFExtractor) *Client {
	limit := rate.Inf
	burst := 1
	if rpm > 0 {
		limit = rate.Limit(float64(rpm) / 60.0)
	}
	if pdf == nil {
		pdf = attachment.NewPDFExtractor(0)
	}
	return &Client{
		chatModel: cm,
		model:     modelName,
		limiter:   rate.NewLimiter(limit, burst),
		pdf:       pdf,
	}
}

func (c *Client) Model() string { return c.model }

// Generate makes exactly one model call; rate-limit answers surface as ErrQuotaExceeded.
func (c *Client) Generate(ctx context.Context, p analysis.Prompt) (string, error) {
	user, err := c.userMessage(p)
	if err != nil {
		return "", err
	}
	messages := []*schema.Message{
		{Role: schema.System, Content: p.System},
		user,
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("%w: %v", analysis.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("generate: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", analysis.ErrEmptyResponse
	}
	return resp.Content, nil
}

func (c *Client) userMessage(p analysis.Prompt) (*schema.Message, error) {
	att := p.Attachment
	switch {
	case att.IsImage():
		return &schema.Message{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: p.User},
				{
					Type: schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{
						URL:      attachment.DataURL(att),
						Detail:   schema.ImageURLDetailAuto,
						MIMEType: att.MIMEType,
					},
				},
			},
		}, nil
	case att.IsPDF():
		text, err := c.pdf.Text(att.Data)
		if err != nil {
			return nil, fmt.Errorf("read pdf attachment: %w", err)
		}
		return &schema.Message{Role: schema.User, Content: attachment.AppendDocument(p.User, att.Filename, text)}, nil
	default:
		return &schema.Message{Role: schema.User, Content: p.User}, nil
	}
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}
