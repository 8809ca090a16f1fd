// Package assistant asks a chat-completion backend for project changes.
// It only returns raw text; applying the answer is up to the caller.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultModel   = openai.GPT4oMini
)

// Config holds the backend settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ChatClient is the part of *openai.Client the assistant needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Request is one prompt together with the project context sent along.
type Request struct {
	Prompt string
	// Files lists every path in the project.
	Files []string
	// Active is the path open in the editor, if any.
	Active        string
	ActiveContent string
}

// Client talks to an OpenAI-compatible endpoint.
type Client struct {
	chat   ChatClient
	config Config
	logger *zap.Logger
}

// New creates a client for the configured endpoint.
func New(config Config, logger *zap.Logger) *Client {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return NewWithClient(openai.NewClientWithConfig(clientConfig), config, logger)
}

// NewWithClient wraps an existing chat client.
func NewWithClient(chat ChatClient, config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{chat: chat, config: config, logger: logger}
}

// Available reports whether a key is configured.
func (c *Client) Available() bool {
	return c.config.APIKey != ""
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string {
	return c.config.Model
}

// Complete sends req and returns the assistant's raw answer.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("prompt is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		c.logger.Warn("completion failed", zap.String("model", c.config.Model), zap.Error(err))
		return "", fmt.Errorf("AI request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("AI request failed: no response from model")
	}

	c.logger.Debug("completion received",
		zap.String("model", c.config.Model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}

// SystemPrompt describes the project and the reply format the parser
// understands.
func SystemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are editing a project held in memory. ")
	b.WriteString("For every file you change, write a line \"UPDATE FILE: <path>\" ")
	b.WriteString("followed by a fenced code block with the complete new content. ")
	b.WriteString("For a file that does not exist yet, use \"NEW FILE: <path>\" instead. ")
	b.WriteString("Always send whole files, never partial snippets or diffs.\n")

	if len(req.Files) > 0 {
		b.WriteString("\nProject files:\n")
		for _, f := range req.Files {
			b.WriteString("- ")
			b.WriteString(f)
			b.WriteString("\n")
		}
	}

	if req.Active != "" {
		fmt.Fprintf(&b, "\nThe user is looking at %s:\n```\n%s\n```\n", req.Active, req.ActiveContent)
	}
	return b.String()
}
