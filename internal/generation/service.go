// Package generation drafts test points and test cases from a requirement
// with an OpenAI-compatible chat model. Output is streamed to the
// requesting browser through the notification hub as it arrives.
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/18061718791/AITestCraft-sub000/internal/notify"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Message types pushed to sockets.
const (
	MessageChunk = "generation.chunk"
	MessageDone  = "generation.done"
	MessageError = "generation.error"
)

// Kind selects what the model is asked to produce.
type Kind string

const (
	KindPoints Kind = "points"
	KindCases  Kind = "cases"
)

const defaultModel = openai.GPT4oMini

var (
	// ErrDisabled is returned when no model endpoint is configured.
	ErrDisabled = errors.New("ai generation is not configured")
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid generation request")
)

// Notifier delivers messages to a browser session.
type Notifier interface {
	Send(clientID string, msg notify.Message) int
}

// Request asks for a generation run.
type Request struct {
	ClientID    string `json:"clientId" validate:"required"`
	Requirement string `json:"requirement" validate:"required"`
	Kind        Kind   `json:"kind" validate:"omitempty,oneof=points cases"`
}

type Service struct {
	client       *openai.Client
	notifier     Notifier
	validate     *validator.Validate
	logger       logrus.FieldLogger
	model        string
	systemPrompt string
	newID        func() string

	baseCtx context.Context
	cancel  context.CancelFunc
	tasks   sync.WaitGroup
}

type Option func(*Service)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithModel(model string) Option {
	return func(s *Service) {
		if strings.TrimSpace(model) != "" {
			s.model = strings.TrimSpace(model)
		}
	}
}

// WithSystemPrompt replaces the built-in instructions sent ahead of every
// requirement.
func WithSystemPrompt(prompt string) Option {
	return func(s *Service) {
		if strings.TrimSpace(prompt) != "" {
			s.systemPrompt = prompt
		}
	}
}

// NewClient builds a chat client for apiKey. An empty baseURL targets the
// public OpenAI endpoint. It returns nil when apiKey is empty.
func NewClient(apiKey, baseURL string) *openai.Client {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// NewService creates a generation service. A nil client leaves the service
// disabled: Generate returns ErrDisabled.
func NewService(client *openai.Client, notifier Notifier, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		client:       client,
		notifier:     notifier,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logrus.StandardLogger(),
		model:        defaultModel,
		systemPrompt: defaultSystemPrompt,
		newID:        uuid.NewString,
		baseCtx:      ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "generation")
	return s
}

// Generate validates req and starts streaming in the background. The
// returned task id tags every message of the run.
func (s *Service) Generate(req Request) (string, error) {
	if s.client == nil {
		return "", ErrDisabled
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.Requirement = strings.TrimSpace(req.Requirement)
	if err := s.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Kind == "" {
		req.Kind = KindPoints
	}

	taskID := s.newID()
	s.tasks.Add(1)
	go s.stream(taskID, req)
	return taskID, nil
}

// Close cancels running streams and waits for them.
func (s *Service) Close() {
	s.cancel()
	s.tasks.Wait()
}

// Wait blocks until every running stream has finished.
func (s *Service) Wait() {
	s.tasks.Wait()
}

func (s *Service) stream(taskID string, req Request) {
	defer s.tasks.Done()
	log := s.logger.WithFields(logrus.Fields{"task_id": taskID, "client_id": req.ClientID, "kind": req.Kind})

	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("panic while generating: %v", rec)
			s.push(req.ClientID, notify.Message{Type: MessageError, TaskID: taskID, Content: "internal error"})
		}
	}()

	content, err := s.complete(s.baseCtx, req, func(delta string) {
		s.push(req.ClientID, notify.Message{Type: MessageChunk, TaskID: taskID, Content: delta})
	})
	if err != nil {
		log.WithError(err).Warn("generation failed")
		s.push(req.ClientID, notify.Message{Type: MessageError, TaskID: taskID, Content: err.Error()})
		return
	}
	s.push(req.ClientID, notify.Message{Type: MessageDone, TaskID: taskID, Content: content})
	log.WithField("chars", len(content)).Info("generation completed")
}

// complete runs one streaming chat completion, calling onDelta for every
// non-empty piece, and returns the concatenated text.
func (s *Service) complete(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		Stream: true,
	})
	if err != nil {
		return "", fmt.Errorf("start completion: %w", err)
	}
	defer stream.Close()

	var out strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return out.String(), nil
		}
		if err != nil {
			return out.String(), fmt.Errorf("receive completion: %w", err)
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			out.WriteString(choice.Delta.Content)
			onDelta(choice.Delta.Content)
		}
	}
}

func (s *Service) push(clientID string, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if s.notifier.Send(clientID, msg) == 0 {
		s.logger.WithFields(logrus.Fields{"client_id": clientID, "type": msg.Type}).Debug("no open socket for client")
	}
}
