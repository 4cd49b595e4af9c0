// Package geminisdk implements advice.Advisor on top of the official Gemini Go
// SDK. The REST client in package gemini owns the exact wire contract; this
// backend trades that control for the SDK's request handling.
package geminisdk

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/aadityaverma2011/dietplan-suggest/internal/advice"
)

const op = "gemini sdk generateContent"

type Client struct {
	client *genai.Client
	model  string
}

// New creates an SDK client authenticated with apiKey. baseURL overrides the
// API host and is empty outside tests.
func New(ctx context.Context, apiKey, model, baseURL string) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Advise(ctx context.Context, p advice.Payload) (string, error) {
	data, err := base64.StdEncoding.DecodeString(p.Base64)
	if err != nil {
		return "", &advice.Error{Kind: advice.KindDecode, Op: op, Err: err}
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(data, p.MIMEType),
		genai.NewPartFromText(p.Instruction),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", classify(ctx, err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", advice.ParseError(op, errors.New("no response from Gemini"))
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

func classify(ctx context.Context, err error) *advice.Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &advice.Error{Kind: advice.KindForStatus(apiErr.Code), Op: op, StatusCode: apiErr.Code, Err: err}
	}
	return advice.TransportError(ctx, op, err)
}
