package apperrors

import "errors"

var (
	ErrEvaluatorUnavailable = errors.New("evaluator is unavailable")
	ErrEngineClosed         = errors.New("engine process is closed")
	ErrEngineRejected       = errors.New("engine rejected the query")
	ErrNoModelFound         = errors.New("no usable model found")
	ErrInvalidPosition      = errors.New("invalid starting position")
	ErrCacheMiss            = errors.New("analysis not cached")
	ErrRunAborted           = errors.New("mining run aborted")
)
