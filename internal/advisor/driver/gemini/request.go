package gemini

import (
	"fmt"
	"strings"

	"github.com/foliolens/foliolens/internal/advisor/driver"
)

type generateContentRequest struct {
	SystemInstruction *contentEntry     `json:"system_instruction,omitempty"`
	Contents          []contentEntry    `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type contentEntry struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

func buildGenerateRequest(req *driver.Request) (*generateContentRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	payload := &generateContentRequest{}
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			// Gemini carries system prompts outside the contents array.
			payload.SystemInstruction = &contentEntry{Parts: []part{{Text: msg.Content}}}
		case "assistant":
			payload.Contents = append(payload.Contents, contentEntry{Role: "model", Parts: []part{{Text: msg.Content}}})
		default:
			payload.Contents = append(payload.Contents, contentEntry{Role: "user", Parts: []part{{Text: msg.Content}}})
		}
	}
	if len(payload.Contents) == 0 {
		return nil, fmt.Errorf("at least one user message is required")
	}

	config := &generationConfig{
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
		config.ResponseMimeType = "application/json"
	}
	if config.Temperature != nil || config.TopP != nil || config.MaxOutputTokens != nil || config.ResponseMimeType != "" {
		payload.GenerationConfig = config
	}

	return payload, nil
}
