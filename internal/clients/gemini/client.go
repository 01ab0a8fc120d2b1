package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

type Model string

const (
	//Model15Flash is fastest multimodal model with great performance for diverse, repetitive tasks
	Model15Flash Model = "gemini-1.5-flash"
	//Model15Flash8b is the smallest model for lower intelligence use cases
	Model15Flash8b Model = "gemini-1.5-flash-8b"
	//Model15Pro is next-generation model with a breakthrough 2 million context window
	Model15Pro Model = "gemini-1.5-pro"
)

type Client struct {
	client            *genai.Client
	model             Model
	maxTokens         int32
	minuteRateLimiter *rate.Limiter
	dayRateLimiter    *rate.Limiter
}

func NewClient(ctx context.Context, apiKey string, model Model) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &Client{client: client, model: model}, nil
}

func (c *Client) Name() string {
	return "gemini"
}

func (c *Client) SetMaxTokens(maxTokens int) {
	c.maxTokens = int32(maxTokens)
}

func (c *Client) SetMinuteRateLimit(maxRequestsPerMinute float32) {
	c.minuteRateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerMinute/60), 1)
}

func (c *Client) SetDayRateLimit(maxRequestsPerDay float32) {
	c.dayRateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerDay/86400), int(maxRequestsPerDay))
}

// Generate sends prompt with systemContext as the system instruction. Internal server errors are retried.
func (c *Client) Generate(ctx context.Context, prompt, systemContext string) (string, error) {
	var resp string
	var err error

	_, _, _ = lo.AttemptWhileWithDelay(3, 2*time.Second, func(i int, _ time.Duration) (error, bool) {
		if i > 0 {
			log.Warn("gemini api returned 500 error, retrying...")
		}
		resp, err = c.waitAndGenerate(ctx, prompt, systemContext)
		return err, isInternalError(err) && ctx.Err() == nil
	})

	return resp, err
}

func (c *Client) waitAndGenerate(ctx context.Context, prompt, systemContext string) (string, error) {
	for _, limiter := range []*rate.Limiter{c.minuteRateLimiter, c.dayRateLimiter} {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
	}

	return c.tryGenerate(ctx, prompt, systemContext)
}

func (c *Client) tryGenerate(ctx context.Context, prompt, systemContext string) (string, error) {
	model := c.client.GenerativeModel(string(c.model))
	if systemContext != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemContext)}}
	}
	if c.maxTokens > 0 {
		model.SetMaxOutputTokens(c.maxTokens)
	}

	response, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("response has no candidates")
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("response part is not text")
	}
	return sb.String(), nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func isInternalError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "Error 500")
}
