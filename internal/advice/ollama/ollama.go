package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/aadityaverma2011/dietplan-suggest/internal/advice"
)

const op = "ollama generate"

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

// Client talks to a local Ollama server. Ollama takes bare base64 images, so
// the payload MIME type is not sent.
type Client struct {
	model string
	http  *resty.Client
}

func NewClient(host, model string) *Client {
	return &Client{
		model: model,
		http: resty.New().
			SetBaseURL(host).
			SetHeader("Content-Type", "application/json"),
	}
}

func (c *Client) Advise(ctx context.Context, p advice.Payload) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(generateRequest{
			Model:  c.model,
			Prompt: p.Instruction,
			Images: []string{p.Base64},
			Stream: false,
		}).
		Post("/api/generate")
	if err != nil {
		return "", advice.TransportError(ctx, op, err)
	}

	if resp.IsError() {
		return "", advice.StatusError(op, resp.StatusCode(), resp.String())
	}

	var body generateResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", advice.ParseError(op, fmt.Errorf("failed to decode response: %w", err))
	}
	if body.Response == nil {
		return "", advice.ParseError(op, errors.New("response field missing"))
	}
	return *body.Response, nil
}
