package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/joho/godotenv"
	"github.com/tovaren/sightline-core/core/camera"
	"github.com/tovaren/sightline-core/core/vision"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"
)

const (
	defaultModel         = "gemini-2.5-flash"
	defaultFrameMIMEType = "image/jpeg"

	apiKeyEnvVar = "GEMINI_API_KEY"
)

// Client is a Gemini-backed vision-language provider. It keeps one retained
// chat per session id so follow-up prompts can rely on earlier context, and
// serves stateless one-shot prompts when no session is requested.
type Client struct {
	client *genai.Client

	model         string
	systemPrompt  string
	frameMIMEType string
	settings      vision.GenerationSettings

	sessionsMu sync.Mutex
	sessions   map[string]*genai.Chat
}

type ClientOption func(*Client)

// WithModel overrides the default model.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithSystemPrompt sets the system instructions applied to every session and
// one-shot prompt unless the call overrides them.
func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) { c.systemPrompt = prompt }
}

// WithFrameMIMEType declares the encoding of attached frame buffers.
func WithFrameMIMEType(mimeType string) ClientOption {
	return func(c *Client) { c.frameMIMEType = mimeType }
}

// WithGenerationDefaults sets the generation settings used when a prompt does
// not carry its own.
func WithGenerationDefaults(settings vision.GenerationSettings) ClientOption {
	return func(c *Client) { c.settings = settings }
}

func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	client := &Client{
		model:         defaultModel,
		frameMIMEType: defaultFrameMIMEType,
		sessions:      map[string]*genai.Chat{},
	}
	for _, opt := range opts {
		opt(client)
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	client.client = genaiClient

	return client, nil
}

// NewClientFromEnv builds a client from the GEMINI_API_KEY environment
// variable, loading a local .env file first when one exists.
func NewClientFromEnv(ctx context.Context, opts ...ClientOption) (*Client, error) {
	// Best effort: a missing .env file just means the variable is expected
	// to be set in the environment already.
	_ = godotenv.Load()

	apiKey := os.Getenv(apiKeyEnvVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is required", apiKeyEnvVar)
	}

	return NewClient(ctx, apiKey, opts...)
}

// ResetSessions drops every retained chat. The next sessioned prompt
// recreates its chat with a fresh system prompt, which is how the pipeline
// recovers the context window once its token budget is spent.
func (c *Client) ResetSessions(ctx context.Context) error {
	if c == nil {
		return nil
	}

	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()

	logger.InfoContext(ctx, "resetting gemini sessions", "sessions", len(c.sessions))
	c.sessions = map[string]*genai.Chat{}
	return nil
}

// EndSession drops a single retained chat, if present.
func (c *Client) EndSession(id string) {
	if c == nil {
		return
	}

	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	delete(c.sessions, id)
}

func (c *Client) sessionChat(ctx context.Context, id string, instructions string) (*genai.Chat, error) {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()

	if chat, ok := c.sessions[id]; ok {
		return chat, nil
	}

	chat, err := c.client.Chats.Create(ctx, c.model, c.generationConfig(instructions, vision.GenerationSettings{}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini chat session: %w", err)
	}
	c.sessions[id] = chat
	return chat, nil
}

func (c *Client) generationConfig(instructions string, settings vision.GenerationSettings) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	effective := c.settings
	if settings != (vision.GenerationSettings{}) {
		effective = settings
	}
	copier.Copy(config, &effective)

	if instructions == "" {
		instructions = c.systemPrompt
	}
	if instructions != "" {
		config.SystemInstruction = genai.NewContentFromText(instructions, genai.RoleModel)
	}

	return config
}

func (c *Client) frameParts(frames []camera.Frame) []*genai.Part {
	parts := make([]*genai.Part, 0, len(frames))
	for _, frame := range frames {
		if len(frame.Data) == 0 {
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(frame.Data, c.frameMIMEType))
	}
	return parts
}
