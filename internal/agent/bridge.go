package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/convoguide/internal/domain"
	"github.com/ashureev/convoguide/internal/inference"
	"github.com/ashureev/convoguide/internal/session"
)

// DefaultBroadcastTimeout bounds each detached send.
const DefaultBroadcastTimeout = 5 * time.Second

// ToolModes maps style tool names to the mode they signal.
var ToolModes = map[string]domain.Mode{
	"humor_style":       domain.ModeHumor,
	"empathy_style":     domain.ModeEmpathetic,
	"serious_style":     domain.ModeSerious,
	"storyweaver_style": domain.ModeCreative,
	"creativity_style":  domain.ModeCreative,
	"debate_style":      domain.ModeDebate,
	"clarity_style":     domain.ModeCasual,
}

// Publisher sends a payload to every participant of one room.
type Publisher interface {
	PublishData(ctx context.Context, topic string, payload []byte) error
}

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	Room       string
	State      func() *session.State
	Publisher  Publisher
	Classifier inference.Classifier
	Timeout    time.Duration
	Now        func() time.Time
	Logger     *slog.Logger
}

// Bridge keeps session state in step with the conversation and mirrors mode
// changes and chat text to the front end. Sends never block event delivery.
type Bridge struct {
	room       string
	state      func() *session.State
	pub        Publisher
	classifier inference.Classifier
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewBridge creates a Bridge.
func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.Classifier == nil {
		cfg.Classifier = inference.NewKeywordClassifier()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBroadcastTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Bridge{
		room:       cfg.Room,
		state:      cfg.State,
		pub:        cfg.Publisher,
		classifier: cfg.Classifier,
		timeout:    cfg.Timeout,
		now:        cfg.Now,
		logger:     cfg.Logger.With("room", cfg.Room),
	}
}

// Attach registers the bridge's handlers on s.
func (b *Bridge) Attach(s *Session) {
	s.On(EventUserInput, b.handle)
	s.On(EventUserInputTranscribed, b.handle)
	s.On(EventSpeechCreated, b.handle)
	s.On(EventFunctionToolsExecuted, b.handle)
}

func (b *Bridge) handle(_ context.Context, ev Event) {
	switch e := ev.(type) {
	case UserInputEvent:
		b.OnUserInput(e)
	case UserInputTranscribedEvent:
		b.OnUserInputTranscribed(e)
	case SpeechCreatedEvent:
		b.OnSpeechCreated(e)
	case FunctionToolsExecutedEvent:
		b.OnFunctionToolsExecuted(e)
	default:
		b.logger.Warn("Ignoring unknown session event", "type", ev.Type())
	}
}

// OnUserInput infers mode and mood from raw text. A detected mode is stored
// and broadcast; a detected mood is only recorded.
func (b *Bridge) OnUserInput(ev UserInputEvent) {
	st := b.state()

	if mode, ok := b.classifier.InferMode(ev.Text); ok {
		if err := st.UpdateMode(mode); err != nil {
			b.logger.Error("Failed to update mode", "mode", mode, "error", err)
		} else {
			b.logger.Info("Mode shifted", "mode", mode)
			b.sendModeDetached(mode)
		}
	}

	if mood, ok := b.classifier.InferMood(ev.Text); ok {
		st.LogMood(mood)
		b.logger.Info("Mood detected", "mood", mood)
	}
}

// OnUserInputTranscribed mirrors the transcript to the chat channel.
func (b *Bridge) OnUserInputTranscribed(ev UserInputTranscribedEvent) {
	b.logger.Info("User input transcribed", "transcript", ev.Transcript, "final", ev.IsFinal)
	b.publishChatDetached(ev.Transcript)
}

// OnSpeechCreated mirrors agent speech to the chat channel.
func (b *Bridge) OnSpeechCreated(ev SpeechCreatedEvent) {
	b.logger.Info("Speech created", "text", preview(ev.Text))
	b.publishChatDetached(ev.Text)
}

// OnFunctionToolsExecuted broadcasts the mode of every mapped tool, in call order.
// Session state is left untouched.
func (b *Bridge) OnFunctionToolsExecuted(ev FunctionToolsExecutedEvent) {
	var names []string
	switch {
	case ev.FunctionCalls != nil:
		for _, call := range ev.FunctionCalls {
			names = append(names, call.ToolName())
		}
	case ev.Zipped != nil:
		for _, pair := range ev.Zipped {
			names = append(names, pair.Call.ToolName())
		}
	default:
		b.logger.Warn("Unable to extract tool calls from event", "event", fmt.Sprintf("%+v", ev))
		return
	}

	for _, name := range names {
		b.logger.Info("Tool executed", "tool", name)
		mode, ok := ToolModes[name]
		if !ok {
			continue
		}
		b.logger.Info("Sending mode update for tool", "tool", name, "mode", mode)
		b.sendModeDetached(mode)
	}
}

// SendModeUpdate publishes a mode-change notification. Failures are logged and returned.
func (b *Bridge) SendModeUpdate(ctx context.Context, mode domain.Mode) error {
	payload, err := domain.EncodeModeChange(mode)
	if err != nil {
		b.logger.Error("Failed to encode mode update", "mode", mode, "error", err)
		return err
	}
	if err := b.pub.PublishData(ctx, domain.TopicModeUpdate, payload); err != nil {
		b.logger.Error("Failed to send mode update", "mode", mode, "error", err)
		return err
	}
	b.logger.Info("Sent mode update to frontend", "mode", mode)
	return nil
}

// PublishToChat publishes text on the chat topic. Failures are logged and returned.
func (b *Bridge) PublishToChat(ctx context.Context, text string) error {
	payload, err := domain.EncodeChatMessage(domain.NewChatMessage(text, b.now()))
	if err != nil {
		b.logger.Error("Failed to encode chat message", "error", err)
		return err
	}
	if err := b.pub.PublishData(ctx, domain.TopicChat, payload); err != nil {
		b.logger.Error("Failed to publish to chat", "error", err)
		return err
	}
	b.logger.Info("Published to chat", "text", preview(text))
	return nil
}

func (b *Bridge) sendModeDetached(mode domain.Mode) {
	b.detach(func(ctx context.Context) { _ = b.SendModeUpdate(ctx, mode) })
}

func (b *Bridge) publishChatDetached(text string) {
	b.detach(func(ctx context.Context) { _ = b.PublishToChat(ctx, text) })
}

// detach runs fn on its own goroutine with a bounded context. Sends after
// Close are dropped.
func (b *Bridge) detach(fn func(ctx context.Context)) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Debug("Bridge closed, dropping send")
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until all in-flight sends have finished.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// Close stops new detached sends and waits for in-flight ones.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}

func preview(s string) string {
	const n = 50
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
