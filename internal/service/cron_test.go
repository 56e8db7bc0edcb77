package service

import (
	"context"
	"errors"
	"testing"
)

type mockPurger struct {
	n     int64
	err   error
	calls int
}

func (m *mockPurger) PurgeExpired(ctx context.Context) (int64, error) {
	m.calls++
	return m.n, m.err
}

func TestCronRunner_PurgeLedger(t *testing.T) {
	p := &mockPurger{n: 3}
	r := NewCronRunner(p, "@every 1h", tokyo)

	r.PurgeLedger()
	p.err = errors.New("locked")
	r.PurgeLedger()

	if p.calls != 2 {
		t.Errorf("Expected 2 purges, got %d", p.calls)
	}
}

func TestCronRunner_StartStop(t *testing.T) {
	r := NewCronRunner(&mockPurger{}, "*/10 * * * *", tokyo)
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Errorf("Expected second Start to be a no-op, got %v", err)
	}
	r.Stop()
	r.Stop()
}

func TestCronRunner_InvalidSpec(t *testing.T) {
	r := NewCronRunner(&mockPurger{}, "every now and then", tokyo)
	if err := r.Start(); err == nil {
		t.Error("Expected error for invalid spec")
	}
}
