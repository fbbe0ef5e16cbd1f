package host

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Bridge is the part of the hosting view the form talks to.
type Bridge interface {
	Ready()
	Expand()
	Close()
}

// Session is the Bridge of a command-line run. Close ends the session by
// invoking onClose once.
type Session struct {
	logger  *logrus.Logger
	launch  Launch
	onClose func()

	mu       sync.Mutex
	ready    bool
	expanded bool
	closed   bool
}

func NewSession(logger *logrus.Logger, launch Launch, onClose func()) *Session {
	return &Session{logger: logger, launch: launch, onClose: onClose}
}

func (s *Session) Ready() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	s.logger.WithFields(logrus.Fields{
		"platform":     s.launch.Platform,
		"color_scheme": s.launch.ColorScheme,
	}).Debug("host ready")
}

func (s *Session) Expand() {
	s.mu.Lock()
	s.expanded = true
	s.mu.Unlock()
}

func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.logger.Info("closing host view")
	if s.onClose != nil {
		s.onClose()
	}
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
