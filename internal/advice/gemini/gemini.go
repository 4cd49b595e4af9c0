package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/aadityaverma2011/dietplan-suggest/internal/advice"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

const op = "gemini generateContent"

// Request mirrors the generateContent body. Field order is part of the wire
// contract: the image part always precedes the text part.
type Request struct {
	Contents []Content `json:"contents"`
}

type Content struct {
	Parts []Part `json:"parts"`
}

// Part carries exactly one of InlineData or Text.
type Part struct {
	InlineData *InlineData `json:"inline_data,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type InlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// response holds only the part of the envelope we read. Text is a pointer so a
// missing field can be told apart from an empty answer.
type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client calls the Gemini REST API directly with the API key as a query
// parameter. It never retries.
type Client struct {
	apiKey string
	model  string
	http   *resty.Client
}

func NewClient(apiKey, model, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json"),
	}
}

// BuildRequest assembles the body for one photo and instruction.
func BuildRequest(p advice.Payload) Request {
	return Request{Contents: []Content{{
		Parts: []Part{
			{InlineData: &InlineData{MIMEType: p.MIMEType, Data: p.Base64}},
			{Text: p.Instruction},
		},
	}}}
}

func (c *Client) endpoint() string {
	return "/v1beta/models/" + c.model + ":generateContent"
}

func (c *Client) Advise(ctx context.Context, p advice.Payload) (string, error) {
	payload, err := json.Marshal(BuildRequest(p))
	if err != nil {
		return "", &advice.Error{Kind: advice.KindUpstream, Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(payload).
		Post(c.endpoint())
	if err != nil {
		return "", advice.TransportError(ctx, op, err)
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return "", advice.StatusError(op, resp.StatusCode(), truncate(resp.String(), 512))
	}

	return extractText(resp.Body())
}

// extractText returns candidates[0].content.parts[0].text from a response body.
func extractText(body []byte) (string, error) {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return "", advice.ParseError(op, fmt.Errorf("failed to decode response: %w", err))
	}
	if len(r.Candidates) == 0 {
		return "", advice.ParseError(op, errors.New("response has no candidates"))
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == nil {
		return "", advice.ParseError(op, errors.New("first candidate has no text part"))
	}
	return *parts[0].Text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
