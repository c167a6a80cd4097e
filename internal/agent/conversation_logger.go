package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ConversationLogConfig configures the transcript log.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// ConversationLogEvent is one line of a room transcript.
type ConversationLogEvent struct {
	Timestamp   time.Time `json:"ts"`
	Room        string    `json:"room"`
	Participant string    `json:"participant,omitempty"`
	Direction   string    `json:"direction"`
	EventType   string    `json:"event_type"`
	Tool        string    `json:"tool,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	Content     string    `json:"content,omitempty"`
	ContentRaw  string    `json:"content_raw,omitempty"`

	release bool
}

// maxOpenLogFiles bounds the room files held open at once.
const maxOpenLogFiles = 128

// ConversationLogger records room transcripts.
type ConversationLogger interface {
	Log(ev ConversationLogEvent)
	// CloseRoom releases the room's file once its queued entries are written.
	CloseRoom(room string)
	Close() error
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) CloseRoom(string)         {}
func (noopConversationLogger) Close() error             { return nil }

// fileConversationLogger appends NDJSON lines to <dir>/<room>.ndjson from a
// single background goroutine.
type fileConversationLogger struct {
	dir    string
	queue  chan ConversationLogEvent
	done   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool

	// files is owned by run; filesMu only guards reads from openFiles.
	filesMu  sync.Mutex
	files    map[string]*openLog
	maxFiles int
	seq      uint64
}

type openLog struct {
	f       *os.File
	lastUse uint64
}

// NewConversationLogger returns a no-op logger when disabled.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("conversation log dir is required when enabled")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	l := &fileConversationLogger{
		dir:    cfg.Dir,
		queue:  make(chan ConversationLogEvent, cfg.QueueSize),
		done:   make(chan struct{}),
		logger:   logger,
		files:    make(map[string]*openLog),
		maxFiles: maxOpenLogFiles,
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Log queues ev without blocking. When the queue is full the oldest entry is dropped.
func (l *fileConversationLogger) Log(ev ConversationLogEvent) {
	l.enqueue(ev)
}

// CloseRoom queues a release so entries already queued for room land first.
func (l *fileConversationLogger) CloseRoom(room string) {
	l.enqueue(ConversationLogEvent{Room: room, release: true})
}

func (l *fileConversationLogger) enqueue(ev ConversationLogEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Content == "" && ev.ContentRaw != "" {
		ev.Content = cleanForReadability(ev.ContentRaw)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	select {
	case l.queue <- ev:
		return
	default:
	}

	l.logger.Warn("Conversation log queue full, dropping oldest entry", "room", ev.Room)
	select {
	case <-l.queue:
	default:
	}
	select {
	case l.queue <- ev:
	default:
		l.logger.Warn("Failed to queue conversation log entry", "room", ev.Room)
	}
}

func (l *fileConversationLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case ev := <-l.queue:
			l.write(ev)
		case <-l.done:
			for {
				select {
				case ev := <-l.queue:
					l.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (l *fileConversationLogger) write(ev ConversationLogEvent) {
	if ev.release {
		l.release(ev.Room)
		return
	}
	f, err := l.file(ev.Room)
	if err != nil {
		l.logger.Warn("Failed to open conversation log", "room", ev.Room, "error", err)
		return
	}
	line, err := json.Marshal(ev)
	if err != nil {
		l.logger.Warn("Failed to marshal conversation log entry", "room", ev.Room, "error", err)
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		l.logger.Warn("Failed to write conversation log entry", "room", ev.Room, "error", err)
	}
}

func (l *fileConversationLogger) file(room string) (*os.File, error) {
	l.seq++
	if o, ok := l.files[room]; ok {
		o.lastUse = l.seq
		return o.f, nil
	}
	if len(l.files) >= l.maxFiles {
		l.release(l.leastRecentlyUsed())
	}
	name := safeFileName(room)
	if name == "" {
		name = "_unknown"
	}
	f, err := os.OpenFile(filepath.Join(l.dir, name+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, err
	}
	l.filesMu.Lock()
	l.files[room] = &openLog{f: f, lastUse: l.seq}
	l.filesMu.Unlock()
	return f, nil
}

func (l *fileConversationLogger) leastRecentlyUsed() string {
	var oldest string
	var oldestUse uint64
	for room, o := range l.files {
		if oldest == "" || o.lastUse < oldestUse {
			oldest, oldestUse = room, o.lastUse
		}
	}
	return oldest
}

func (l *fileConversationLogger) release(room string) {
	l.filesMu.Lock()
	o, ok := l.files[room]
	delete(l.files, room)
	l.filesMu.Unlock()
	if !ok {
		return
	}
	if err := o.f.Close(); err != nil {
		l.logger.Warn("Failed to close conversation log", "room", room, "error", err)
	}
}

func (l *fileConversationLogger) openFiles() int {
	l.filesMu.Lock()
	defer l.filesMu.Unlock()
	return len(l.files)
}

// Close flushes queued entries and closes open files.
func (l *fileConversationLogger) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		close(l.done)
	})

	stopped := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		l.logger.Warn("Conversation logger shutdown timeout")
		return nil
	}

	l.filesMu.Lock()
	defer l.filesMu.Unlock()
	var firstErr error
	for room, o := range l.files {
		if err := o.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(l.files, room)
	}
	return firstErr
}

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)
	spaceRuns    = regexp.MustCompile(`\s+`)
	unsafeName   = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// cleanForReadability drops control characters and collapses whitespace.
func cleanForReadability(s string) string {
	s = controlChars.ReplaceAllString(s, "")
	return strings.TrimSpace(spaceRuns.ReplaceAllString(s, " "))
}

func safeFileName(room string) string {
	return unsafeName.ReplaceAllString(room, "_")
}
