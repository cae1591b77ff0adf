package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// NewGeminiClient builds the modelClient backed by the real Gemini API,
// grounded on the other_examples Gemini call sites that construct
// genai.Content via genai.NewContentFromText and genai.RoleUser.
func NewGeminiClient(ctx context.Context, apiKey string) (*genaiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create genai client: %w", err)
	}
	return &genaiClient{client: client}, nil
}

func (c *genaiClient) config(sysInstruction string) *genai.GenerateContentConfig {
	if sysInstruction == "" {
		return nil
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(sysInstruction, genai.RoleUser),
	}
}

func (c *genaiClient) GenerateContent(ctx context.Context, model string, prompt string, sysInstruction string) (string, int, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, c.config(sysInstruction))
	if err != nil {
		return "", 0, translateGenaiErr(err)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return resp.Text(), tokens, nil
}

func (c *genaiClient) GenerateContentStream(ctx context.Context, model string, prompt string, sysInstruction string, onPartial func(cumulative string)) (string, int, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var builder strings.Builder
	tokens := 0
	var streamErr error

	for chunk, err := range c.client.Models.GenerateContentStream(ctx, model, contents, c.config(sysInstruction)) {
		if err != nil {
			streamErr = err
			break
		}
		builder.WriteString(chunk.Text())
		if chunk.UsageMetadata != nil {
			tokens = int(chunk.UsageMetadata.TotalTokenCount)
		}
		onPartial(builder.String())
	}
	if streamErr != nil {
		return "", 0, translateGenaiErr(streamErr)
	}
	return builder.String(), tokens, nil
}

func (c *genaiClient) GenerateWithImage(ctx context.Context, model string, prompt string, imageBytes []byte, mime string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(imageBytes, mime),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", translateGenaiErr(err)
	}
	return resp.Text(), nil
}

// translateGenaiErr maps a provider "not found" error (unknown or
// decommissioned model) to errModelNotFound so the Generator can prune it;
// any other error passes through for the caller's retry/fallback logging.
func translateGenaiErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not found") || strings.Contains(msg, "404") {
		return fmt.Errorf("%w: %v", errModelNotFound, err)
	}
	return err
}
