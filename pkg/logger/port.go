package logger

// Fields - структурированные данные, которые передаются в лог.
type Fields map[string]interface{}

// LoggerPort определяет контракт для системы логирования.
// Ядро сервисов зависит только от него, а не от конкретного логгера.
type LoggerPort interface {
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	// Error записывает ошибку вместе с объектом error (может быть nil).
	Error(msg string, err error, fields Fields)
	Debug(msg string, fields Fields)

	// WithFields возвращает новый логгер с добавленными полями (trace_id, user_id и т.д.).
	WithFields(fields Fields) LoggerPort
}

// NewNoop возвращает логгер, который ничего не делает.
func NewNoop() LoggerPort {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Info(string, Fields)            {}
func (noopLogger) Warn(string, Fields)            {}
func (noopLogger) Error(string, error, Fields)    {}
func (noopLogger) Debug(string, Fields)           {}
func (n noopLogger) WithFields(Fields) LoggerPort { return n }
