package engine

import (
	"context"
	"io"
	"sync"

	"live-transcriber/internal/domain"
)

// emitFunc hands one produced segment to the consumer. It reports false
// when the consumer has gone away and further segments are dropped.
type emitFunc func(seg domain.Segment, lang string) bool

// produceFunc runs a backend until it has produced every segment.
type produceFunc func(ctx context.Context, emit emitFunc) error

// chanStream bridges a callback-driven backend into a pull-based stream.
type chanStream struct {
	items    chan domain.Segment
	langSet  chan struct{}
	finished chan struct{}
	cancel   context.CancelFunc

	langOnce sync.Once
	lang     string
	err      error
}

// newChanStream starts produce on its own goroutine. Segments are buffered
// so a slow consumer does not stall decoding for short bursts.
func newChanStream(ctx context.Context, buffer int, produce produceFunc) *chanStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &chanStream{
		items:    make(chan domain.Segment, buffer),
		langSet:  make(chan struct{}),
		finished: make(chan struct{}),
		cancel:   cancel,
	}

	go func() {
		defer close(s.finished)
		err := produce(ctx, func(seg domain.Segment, lang string) bool {
			s.setLanguage(lang)
			select {
			case s.items <- seg:
				return true
			case <-ctx.Done():
				return false
			}
		})
		s.err = err
		s.setLanguage("")
		close(s.items)
	}()

	return s
}

func (s *chanStream) setLanguage(lang string) {
	s.langOnce.Do(func() {
		s.lang = lang
		close(s.langSet)
	})
}

// Language blocks until the first segment arrives or production ends.
func (s *chanStream) Language() string {
	<-s.langSet
	return s.lang
}

// Next implements SegmentStream.
func (s *chanStream) Next() (domain.Segment, error) {
	seg, ok := <-s.items
	if ok {
		return seg, nil
	}
	if s.err != nil {
		return domain.Segment{}, s.err
	}
	return domain.Segment{}, io.EOF
}

// Close cancels delivery and waits for the producer to return, so backend
// resources can be released safely afterwards.
func (s *chanStream) Close() error {
	s.cancel()
	<-s.finished
	return nil
}
