package execution

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestInFlightDeduperAcquireAndDuplicate(t *testing.T) {
	d := NewInFlightDeduper(time.Minute)

	if err := d.TryAcquire("k1"); err != nil {
		t.Fatalf("first acquire must succeed: %v", err)
	}
	if err := d.TryAcquire("k1"); !errors.Is(err, ErrDuplicateInFlight) {
		t.Fatalf("second acquire must report duplicate, got %v", err)
	}
	if err := d.TryAcquire("k2"); err != nil {
		t.Fatalf("other key must be independent: %v", err)
	}
}

func TestInFlightDeduperRelease(t *testing.T) {
	d := NewInFlightDeduper(time.Minute)

	if err := d.TryAcquire("k1"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	d.Release("k1")
	if err := d.TryAcquire("k1"); err != nil {
		t.Fatalf("released key must be reusable: %v", err)
	}
}

func TestInFlightDeduperTTLExpiry(t *testing.T) {
	d := NewInFlightDeduper(10 * time.Millisecond)

	if err := d.TryAcquire("k1"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := d.TryAcquire("k1"); err != nil {
		t.Fatalf("expired key must be reusable: %v", err)
	}
}

func TestInFlightDeduperNilAndEmptyKey(t *testing.T) {
	var d *InFlightDeduper
	if err := d.TryAcquire("k"); err != nil {
		t.Fatalf("nil deduper must be a no-op: %v", err)
	}
	d2 := NewInFlightDeduper(time.Minute)
	if err := d2.TryAcquire(""); err != nil {
		t.Fatalf("empty key must be a no-op: %v", err)
	}
	if err := d2.TryAcquire(""); err != nil {
		t.Fatalf("empty key must never dedupe: %v", err)
	}
}
