package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPost struct {
	tag  string
	data Fields
}

type fakePoster struct {
	posts  []recordedPost
	closed bool
}

func (f *fakePoster) Post(tag string, message interface{}) error {
	f.posts = append(f.posts, recordedPost{tag: tag, data: message.(Fields)})
	return nil
}

func (f *fakePoster) Close() error {
	f.closed = true
	return nil
}

func TestFluentAdapterFiltersByLevel(t *testing.T) {
	poster := &fakePoster{}
	l := newFluentAdapter(poster, slog.LevelWarn)

	l.Debug("debug", nil)
	l.Info("info", nil)
	l.Warn("warn", Fields{"k": "v"})
	l.Error("boom", errors.New("bad"), nil)

	require.Len(t, poster.posts, 2)
	assert.Equal(t, "warn", poster.posts[0].tag)
	assert.Equal(t, "v", poster.posts[0].data["k"])
	assert.Equal(t, "error", poster.posts[1].tag)
	assert.Equal(t, "bad", poster.posts[1].data["error"])
	assert.Equal(t, "boom", poster.posts[1].data["message"])
}

func TestFluentAdapterWithFieldsDoesNotMutateParent(t *testing.T) {
	poster := &fakePoster{}
	parent := newFluentAdapter(poster, slog.LevelDebug)
	child := parent.WithFields(Fields{"trace_id": "abc"})

	parent.Info("parent", nil)
	child.Info("child", Fields{"extra": 1})

	require.Len(t, poster.posts, 2)
	_, hasTrace := poster.posts[0].data["trace_id"]
	assert.False(t, hasTrace)
	assert.Equal(t, "abc", poster.posts[1].data["trace_id"])
	assert.Equal(t, 1, poster.posts[1].data["extra"])
}

type countingLogger struct {
	calls  *int
	fields Fields
}

func (c countingLogger) Info(string, Fields)         { *c.calls++ }
func (c countingLogger) Warn(string, Fields)         { *c.calls++ }
func (c countingLogger) Error(string, error, Fields) { *c.calls++ }
func (c countingLogger) Debug(string, Fields)        { *c.calls++ }
func (c countingLogger) WithFields(f Fields) LoggerPort {
	return countingLogger{calls: c.calls, fields: f}
}

func TestMultiLoggerFansOut(t *testing.T) {
	var a, b int
	m, err := NewMultiloggerAdapter(countingLogger{calls: &a}, countingLogger{calls: &b})
	require.NoError(t, err)

	m.WithFields(Fields{"x": 1}).Info("hello", nil)
	m.Error("err", nil, nil)

	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)
}

func TestMultiLoggerRequiresLoggers(t *testing.T) {
	_, err := NewMultiloggerAdapter()
	assert.Error(t, err)
}

func TestSlogAdapterWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(SlogConfig{Writer: &buf, IsJSON: true, Level: slog.LevelDebug})

	l.WithFields(Fields{"component": "test"}).Debug("hello", Fields{"n": 3})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.EqualValues(t, 3, entry["n"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
