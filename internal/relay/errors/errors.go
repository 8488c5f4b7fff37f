package errors

import sterrors "errors"

var (
	ErrConfigRequired       = sterrors.New("meshrelay: config is required")
	ErrLoggerRequired       = sterrors.New("meshrelay: logger is required")
	ErrConsumeTopicRequired = sterrors.New("meshrelay: consume topic is required")
	ErrEventRequired        = sterrors.New("meshrelay: event is required")
)
