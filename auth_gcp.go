package main

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultRegion     = "europe-west1"
	defaultTextModel  = "gemini-2.5-flash"
	defaultImageModel = "gemini-2.5-flash-image"
)

// contentGenerator is the subset of genai.Models used by GeminiClient.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig selects the backend and models. APIKey wins over ProjectID.
type GeminiConfig struct {
	APIKey     string
	ProjectID  string
	Region     string
	TextModel  string
	ImageModel string
}

// GeminiClient wraps the Google GenAI client for riddle and background generation.
type GeminiClient struct {
	models     contentGenerator
	textModel  string
	imageModel string
}

// NewGeminiClient creates a client for the Gemini API when an API key is set,
// otherwise for VertexAI using Application Default Credentials.
// Set GOOGLE_APPLICATION_CREDENTIALS to the service account key file path.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.ProjectID != "":
		if cfg.Region == "" {
			cfg.Region = defaultRegion
		}
		cc.Project = cfg.ProjectID
		cc.Location = cfg.Region
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("no Gemini credential: set GEMINI_API_KEY or GCP_PROJECT_ID")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGeminiClient(client.Models, cfg.TextModel, cfg.ImageModel), nil
}

func newGeminiClient(models contentGenerator, textModel, imageModel string) *GeminiClient {
	if textModel == "" {
		textModel = defaultTextModel
	}
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	return &GeminiClient{
		models:     models,
		textModel:  textModel,
		imageModel: imageModel,
	}
}

// Close releases resources held by the client.
func (g *GeminiClient) Close() error {
	return nil
}
