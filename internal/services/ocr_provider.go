package services

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const ocrPrompt = "Transcribe all text visible in this document page. " +
	"Preserve reading order and paragraph breaks. Output only the transcribed text."

// OCRProvider extracts text from a document page image.
type OCRProvider interface {
	Name() string
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

// GeminiOCRProvider implements OCRProvider using the Gemini vision API.
type GeminiOCRProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiOCRProvider(apiKey, modelName string) (*GeminiOCRProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY") // Fallback to env var
	}
	if apiKey == "" {
		log.Warn("Google API key not provided. Gemini OCR provider will be disabled.")
		return &GeminiOCRProvider{client: nil, model: modelName}, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	log.Infof("Gemini OCR provider initialized with model %s", modelName)
	return &GeminiOCRProvider{client: client, model: modelName}, nil
}

func (p *GeminiOCRProvider) Name() string { return "gemini" }

func (p *GeminiOCRProvider) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("Gemini OCR provider is not initialized (missing API key)")
	}
	if len(image) == 0 {
		return "", fmt.Errorf("empty page image")
	}

	// genai wants the subtype only, e.g. "png" for image/png.
	format := mimeType
	if len(format) > 6 && format[:6] == "image/" {
		format = format[6:]
	}

	model := p.client.GenerativeModel(p.model)
	resp, err := model.GenerateContent(ctx,
		genai.ImageData(format, image),
		genai.Text(ocrPrompt),
	)
	if err != nil {
		return "", fmt.Errorf("gemini ocr request: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini ocr response contained no candidates")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return text, nil
}

func (p *GeminiOCRProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
