package sheets

import (
	"context"
	"sync"
)

// fakeBackend records every operation issued against an in-memory sheet.
type fakeBackend struct {
	mu      sync.Mutex
	checkFn func() error
	openErr error
	opens   int
	calls   []string
	header  []string
	appends [][]string
	ranges  []string

	valuesErr error
	formatErr error
	// gate, when set, blocks every header read until closed.
	gate chan struct{}
}

func (b *fakeBackend) Check() error {
	if b.checkFn != nil {
		return b.checkFn()
	}
	return nil
}

func (b *fakeBackend) Open(ctx context.Context) (Service, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opens++
	if b.openErr != nil {
		return nil, b.openErr
	}
	return &fakeService{b: b}, nil
}

func (b *fakeBackend) record(call, rng string) {
	b.calls = append(b.calls, call)
	b.ranges = append(b.ranges, rng)
}

func (b *fakeBackend) count(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == call {
			n++
		}
	}
	return n
}

type fakeService struct {
	b *fakeBackend
}

func (s *fakeService) Values(ctx context.Context, rng string) ([][]string, error) {
	if s.b.gate != nil {
		<-s.b.gate
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.record("values", rng)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.b.valuesErr != nil {
		return nil, s.b.valuesErr
	}
	if s.b.header == nil {
		return nil, nil
	}
	return [][]string{append([]string(nil), s.b.header...)}, nil
}

func (s *fakeService) Update(ctx context.Context, rng string, rows [][]string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.record("update", rng)
	s.b.header = append([]string(nil), rows[0]...)
	return nil
}

func (s *fakeService) Append(ctx context.Context, rng string, rows [][]string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.record("append", rng)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.b.appends = append(s.b.appends, rows...)
	return nil
}

func (s *fakeService) Format(ctx context.Context, title string, layout Layout) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.record("format", title)
	return s.b.formatErr
}

func (s *fakeService) Close() error { return nil }
