package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConversationLoggerWritesPerRoomNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	event := ConversationLogEvent{
		Room:        "convoguide-1700000000000",
		Participant: "alice",
		Direction:   "inbound",
		EventType:   "user_transcript",
		ContentRaw:  "tell me\n\ta   joke",
	}
	logger.Log(event)

	path := filepath.Join(dir, "convoguide-1700000000000.ndjson")
	line := waitForLogLine(t, path)
	var got ConversationLogEvent
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.ContentRaw != "tell me\n\ta   joke" {
		t.Fatalf("unexpected ContentRaw: %q", got.ContentRaw)
	}
	if got.Content != "tell me a joke" {
		t.Fatalf("expected cleaned content, got %q", got.Content)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be populated")
	}
}

func TestConversationLoggerDisabledIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := NewConversationLogger(ConversationLogConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	if _, ok := logger.(noopConversationLogger); !ok {
		t.Fatalf("expected noop logger, got %T", logger)
	}
	logger.Log(ConversationLogEvent{Room: "r"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestConversationLoggerSanitizesRoomFileName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{Enabled: true, Dir: dir}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	logger.Log(ConversationLogEvent{Room: "../escape:room", EventType: "agent_speech", ContentRaw: "hi"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".._escape_room.ndjson")); err != nil {
		t.Fatalf("expected sanitized log file: %v", err)
	}
}

func TestCleanForReadabilityStripsControlCharacters(t *testing.T) {
	t.Parallel()

	raw := "\x07hello\x1b   world\r\n"
	clean := cleanForReadability(raw)
	if strings.ContainsAny(clean, "\x07\x1b") {
		t.Fatalf("expected control characters to be stripped: %q", clean)
	}
	if clean != "hello world" {
		t.Fatalf("unexpected cleaned text: %q", clean)
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}

func waitForOpenFiles(t *testing.T, l *fileConversationLogger, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for l.openFiles() != want && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := l.openFiles(); got != want {
		t.Fatalf("expected %d open log files, got %d", want, got)
	}
}

func TestConversationLoggerCloseRoomReleasesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 1024}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()
	fl := logger.(*fileConversationLogger)

	for i := 0; i < 300; i++ {
		room := fmt.Sprintf("convoguide-%d", i)
		fl.Log(ConversationLogEvent{Room: room, EventType: "agent_speech", ContentRaw: "bye"})
		fl.CloseRoom(room)
	}
	waitForOpenFiles(t, fl, 0)

	// Entries queued before the release still reach the file.
	line := waitForLogLine(t, filepath.Join(dir, "convoguide-299.ndjson"))
	if !strings.Contains(line, `"content":"bye"`) {
		t.Fatalf("unexpected last line %q", line)
	}

	// A room that logs again after release reopens its file in append mode.
	fl.Log(ConversationLogEvent{Room: "convoguide-0", EventType: "agent_speech", ContentRaw: "back"})
	path := filepath.Join(dir, "convoguide-0.ndjson")
	deadline := time.Now().Add(2 * time.Second)
	var data []byte
	for time.Now().Before(deadline) {
		data, _ = os.ReadFile(path)
		if strings.Contains(string(data), "back") {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "bye") || !strings.Contains(lines[1], "back") {
		t.Fatalf("expected original and appended lines, got %q", data)
	}
}

func TestConversationLoggerCapsOpenFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 64}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()
	fl := logger.(*fileConversationLogger)
	fl.maxFiles = 4

	for i := 0; i < 10; i++ {
		fl.Log(ConversationLogEvent{Room: fmt.Sprintf("room-%d", i), EventType: "agent_speech", ContentRaw: "hi"})
	}
	waitForLogLine(t, filepath.Join(dir, "room-9.ndjson"))
	waitForOpenFiles(t, fl, 4)

	for i := 0; i < 10; i++ {
		if _, err := os.Stat(filepath.Join(dir, fmt.Sprintf("room-%d.ndjson", i))); err != nil {
			t.Fatalf("room-%d should still have been logged: %v", i, err)
		}
	}
}
