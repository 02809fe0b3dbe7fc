package httpserver

import "errors"

var (
	ErrStart    = errors.New("httpserver.errors.start_failed")
	ErrShutdown = errors.New("httpserver.errors.shutdown_failed")
	ErrRunning  = errors.New("httpserver.errors.already_running")
)
