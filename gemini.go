package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const riddlePrompt = `I am making a word puzzle for kids.
Target words: %[1]s.
1. Create a simple, fun riddle or question for each of these 3 words suitable for a 6-year-old child. Never write the word itself in its riddle.
2. Generate a descriptive prompt for an image generation model that reflects a magical world containing these three items: %[1]s. The theme should be soft, pastel, and playful (cartoon style).`

const backgroundPrompt = "A vibrant, high-quality, kid-friendly background illustration: %s. Use a soft, playful art style. No text in the image."

// riddleSchema constrains the text model to the GeneratedContent shape.
var riddleSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"riddles": {
			Type:     genai.TypeArray,
			MinItems: genai.Ptr[int64](3),
			MaxItems: genai.Ptr[int64](3),
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"word":     {Type: genai.TypeString},
					"question": {Type: genai.TypeString},
				},
				Required: []string{"word", "question"},
			},
		},
		"imagePrompt": {Type: genai.TypeString},
	},
	Required: []string{"riddles", "imagePrompt"},
}

// RequestRiddles asks the text model for one riddle per word and an image prompt.
func (g *GeminiClient) RequestRiddles(ctx context.Context, words [3]string) (*GeneratedContent, error) {
	joined := strings.Join(words[:], ", ")

	resp, err := g.models.GenerateContent(ctx, g.textModel,
		genai.Text(fmt.Sprintf(riddlePrompt, joined)),
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.9)),
			ResponseMIMEType: "application/json",
			ResponseSchema:   riddleSchema,
		},
	)
	if err != nil {
		return nil, genErr(StepRiddles, fmt.Errorf("gemini generate: %w", err))
	}

	var text string
	if resp != nil {
		text = strings.TrimSpace(resp.Text())
	}
	if text == "" {
		return nil, genErr(StepRiddles, fmt.Errorf("empty gemini response"))
	}

	content, err := parseGeneratedContent(text, words)
	if err != nil {
		return nil, genErr(StepRiddles, err)
	}
	return content, nil
}

// parseGeneratedContent decodes and validates the text model's JSON answer.
// Riddles are put back in target-word order when their word matches.
func parseGeneratedContent(text string, words [3]string) (*GeneratedContent, error) {
	var c GeneratedContent
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return nil, fmt.Errorf("parse riddles JSON: %w\nraw response: %s", err, text)
	}

	c.ImagePrompt = strings.TrimSpace(c.ImagePrompt)
	if c.ImagePrompt == "" {
		return nil, fmt.Errorf("response has no imagePrompt")
	}
	if len(c.Riddles) != len(words) {
		return nil, fmt.Errorf("expected %d riddles, got %d", len(words), len(c.Riddles))
	}
	for i, r := range c.Riddles {
		if strings.TrimSpace(r.Question) == "" {
			return nil, fmt.Errorf("riddle %d has no question", i+1)
		}
	}

	ordered := make([]Riddle, len(words))
	placed := make([]bool, len(c.Riddles))
	filled := make([]bool, len(words))
	for i, w := range words {
		for j, r := range c.Riddles {
			if !placed[j] && strings.EqualFold(strings.TrimSpace(r.Word), w) {
				ordered[i] = Riddle{Word: w, Question: strings.TrimSpace(r.Question)}
				placed[j], filled[i] = true, true
				break
			}
		}
	}
	// Unmatched riddles fill the remaining slots in response order.
	next := 0
	for i := range ordered {
		if filled[i] {
			continue
		}
		for placed[next] {
			next++
		}
		ordered[i] = Riddle{Word: words[i], Question: strings.TrimSpace(c.Riddles[next].Question)}
		placed[next] = true
	}
	c.Riddles = ordered

	return &c, nil
}

// RequestBackground asks the image model for a square illustration and
// returns the first inline image found in the response.
func (g *GeminiClient) RequestBackground(ctx context.Context, imagePrompt string) (*EncodedImage, error) {
	resp, err := g.models.GenerateContent(ctx, g.imageModel,
		genai.Text(fmt.Sprintf(backgroundPrompt, imagePrompt)),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
			ImageConfig:        &genai.ImageConfig{AspectRatio: "1:1"},
		},
	)
	if err != nil {
		return nil, genErr(StepBackground, fmt.Errorf("gemini generate: %w", err))
	}

	img := firstInlineImage(resp)
	if img == nil {
		return nil, genErr(StepBackground, ErrNoImageData)
	}
	return img, nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) *EncodedImage {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &EncodedImage{MIMEType: mime, Data: part.InlineData.Data}
		}
	}
	return nil
}
