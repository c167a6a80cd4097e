package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Stub is a deterministic backend. With no funcs set it echoes input, which keeps
// the server usable without provider credentials; tests script it through the funcs.
type Stub struct {
	GenerateFunc func(ctx context.Context, req Request) (string, error)
	ChatFunc     func(ctx context.Context, req ChatRequest) (ChatResult, error)

	mu           sync.Mutex
	generateReqs []Request
	chatReqs     []ChatRequest
}

var _ Backend = (*Stub)(nil)

// NewStub returns an echoing stub backend.
func NewStub() *Stub {
	return &Stub{}
}

// Generate records req and delegates to GenerateFunc.
func (s *Stub) Generate(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.generateReqs = append(s.generateReqs, req)
	fn := s.GenerateFunc
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return firstLineValue(req.User), nil
}

// Chat records req and delegates to ChatFunc.
func (s *Stub) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	s.mu.Lock()
	s.chatReqs = append(s.chatReqs, req)
	fn := s.ChatFunc
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			return ChatResult{Text: fmt.Sprintf("I hear you. You said %q. Tell me more.", req.Messages[i].Content)}, nil
		}
	}
	return ChatResult{Text: "Hi! What's on your mind?"}, nil
}

// GenerateRequests returns the requests seen by Generate.
func (s *Stub) GenerateRequests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.generateReqs...)
}

// ChatRequests returns the requests seen by Chat.
func (s *Stub) ChatRequests() []ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatRequest(nil), s.chatReqs...)
}

// Close is a no-op.
func (s *Stub) Close() error {
	return nil
}

// firstLineValue returns the value of the first "label: value" line.
func firstLineValue(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	if _, value, ok := strings.Cut(line, ": "); ok {
		return value
	}
	return line
}
