package logger

import (
	"fmt"

	fluentlogger "marketplace/pkg/fluent_logger"

	"github.com/fluent/fluent-logger-golang/fluent"
)

// SetupConfig описывает, какие логгеры собрать для сервиса.
type SetupConfig struct {
	AppName      string
	StdoutLevel  string
	StdoutJSON   bool
	FluentEnable bool
	FluentHost   string
	FluentPort   int
	FluentLevel  string
}

// Setup собирает композитный логгер (stdout + опционально Fluent Bit)
// с полем service_name. Возвращенный fluent-клиент нужно закрыть при остановке.
func Setup(cfg SetupConfig) (LoggerPort, *fluent.Fluent, error) {
	var active []LoggerPort

	stdout := NewSlogAdapter(SlogConfig{
		Level:    ParseLevel(cfg.StdoutLevel),
		IsJSON:   cfg.StdoutJSON,
		UseColor: !cfg.StdoutJSON,
	})
	active = append(active, stdout)

	var fluentClient *fluent.Fluent
	if cfg.FluentEnable {
		var err error
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      cfg.FluentHost,
			Port:      cfg.FluentPort,
			TagPrefix: cfg.AppName,
		})
		if err != nil {
			stdout.Error("Failed to create fluentbit client", err, nil)
			return nil, nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := NewFluentLoggerAdapter(fluentClient, ParseLevel(cfg.FluentLevel))
		if err != nil {
			fluentClient.Close()
			return nil, nil, err
		}
		active = append(active, fluentAdapter)
	}

	multi, err := NewMultiloggerAdapter(active...)
	if err != nil {
		if fluentClient != nil {
			fluentClient.Close()
		}
		return nil, nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	base := multi.WithFields(Fields{"service_name": cfg.AppName})
	base.Debug("Logger system initialized", Fields{
		"active_loggers": len(active),
		"fluent_enabled": cfg.FluentEnable,
	})
	return base, fluentClient, nil
}
