package port

import "marketplace/pkg/logger"

type Fields = logger.Fields

type LoggerPort = logger.LoggerPort
