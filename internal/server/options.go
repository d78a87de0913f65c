package server

import (
	"net"

	"github.com/bft-labs/orderly/pkg/lifecycle"
	"github.com/bft-labs/orderly/pkg/log"
)

// Option configures optional behavior of a Server.
type Option func(*Server)

// WithLogger sets the logger shared by every component.
func WithLogger(logger log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithListener serves on l instead of listening on the configured address.
func WithListener(l net.Listener) Option {
	return func(s *Server) {
		s.listener = l
	}
}

// WithConfigFile watches path and applies runtime-safe settings when it
// changes.
func WithConfigFile(path string) Option {
	return func(s *Server) {
		s.configPath = path
	}
}

// WithLevelFunc sets the function called when the watched config file
// changes log_level.
func WithLevelFunc(fn func(level string)) Option {
	return func(s *Server) {
		s.setLevel = fn
	}
}

// WithEventEmitter receives lifecycle state changes.
func WithEventEmitter(em lifecycle.EventEmitter) Option {
	return func(s *Server) {
		s.emitter = em
	}
}
