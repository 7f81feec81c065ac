package observability

import (
	"context"
	"sync"
	"time"
)

// NewLogTracer returns a tracer that writes one debug line per finished
// span, carrying its tags and elapsed time. Failed spans are logged at warn.
// The logger attached to the span's context is preferred over logger.
func NewLogTracer(logger Logger) Tracer {
	if logger == nil {
		logger = NopLogger{}
	}
	return logTracer{logger: logger, now: time.Now}
}

type logTracer struct {
	logger Logger
	now    func() time.Time
}

func (t logTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &logSpan{
		name:   name,
		logger: FromContext(ctx, t.logger),
		now:    t.now,
		start:  t.now(),
	}
}

type logSpan struct {
	name   string
	logger Logger
	now    func() time.Time
	start  time.Time

	mu       sync.Mutex
	tags     []Field
	err      error
	finished bool
}

func (s *logSpan) SetTag(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = append(s.tags, field{key, value})
}

func (s *logSpan) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Finish logs the span once; later calls are ignored.
func (s *logSpan) Finish() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	fields := append([]Field{
		String("span", s.name),
		Duration("elapsed", s.now().Sub(s.start)),
	}, s.tags...)
	err := s.err
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("span failed", append(fields, Error("error", err))...)
		return
	}
	s.logger.Debug("span finished", fields...)
}
