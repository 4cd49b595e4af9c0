package claude

import (
	"context"
	"errors"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/aadityaverma2011/dietplan-suggest/internal/advice"
)

const op = "claude messages"

// maxTokens comfortably covers the four short sections the prompt asks for.
const maxTokens = 1024

type Client struct {
	client *anthropic.Client
	model  string
}

// NewClient creates a Claude advice client. baseURL overrides the API root
// (it must include the /v1 segment) and is empty outside tests.
func NewClient(apiKey, model, baseURL string) *Client {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &Client{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func buildMessages(p advice.Payload) []anthropic.Message {
	return []anthropic.Message{{
		Role: anthropic.RoleUser,
		Content: []anthropic.MessageContent{
			anthropic.NewImageMessageContent(
				anthropic.NewMessageContentSource(anthropic.MessagesContentSourceTypeBase64, p.MIMEType, p.Base64),
			),
			anthropic.NewTextMessageContent(p.Instruction),
		},
	}}
}

func (c *Client) Advise(ctx context.Context, p advice.Payload) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages:  buildMessages(p),
	})
	if err != nil {
		return "", classify(ctx, err)
	}

	for _, blk := range resp.Content {
		if blk.Type == anthropic.MessagesContentTypeText {
			return blk.GetText(), nil
		}
	}
	return "", advice.ParseError(op, errors.New("response has no text block"))
}

func classify(ctx context.Context, err error) *advice.Error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case anthropic.ErrTypeAuthentication, anthropic.ErrTypePermission:
			return &advice.Error{Kind: advice.KindAuth, Op: op, Err: err}
		case anthropic.ErrTypeRateLimit:
			return &advice.Error{Kind: advice.KindQuota, Op: op, Err: err}
		default:
			return &advice.Error{Kind: advice.KindUpstream, Op: op, Err: err}
		}
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return &advice.Error{Kind: advice.KindForStatus(reqErr.StatusCode), Op: op, StatusCode: reqErr.StatusCode, Err: err}
	}
	return advice.TransportError(ctx, op, err)
}
