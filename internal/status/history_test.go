package status

import (
	"strconv"
	"testing"
)

func push(h *history, from, to int) {
	for i := from; i < to; i++ {
		h.push(Notification{Payload: strconv.Itoa(i)})
	}
}

func TestHistoryEmpty(t *testing.T) {
	h := newHistory(10)
	if got := h.items(); got != nil {
		t.Errorf("expected nil from empty history, got %d items", len(got))
	}
}

func TestHistoryPushAndItems(t *testing.T) {
	h := newHistory(10)
	push(h, 0, 5)

	got := h.items()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		if got[i].Payload != strconv.Itoa(i) {
			t.Errorf("item %d: expected payload %d, got %s", i, i, got[i].Payload)
		}
	}

	// Reading does not consume
	if h.len() != 5 {
		t.Errorf("expected len 5 after items, got %d", h.len())
	}
}

func TestHistoryFillToCapacity(t *testing.T) {
	cap := 10
	h := newHistory(cap)
	push(h, 0, cap)

	got := h.items()
	if len(got) != cap {
		t.Fatalf("expected %d items, got %d", cap, len(got))
	}
	if got[0].Payload != "0" || got[cap-1].Payload != "9" {
		t.Errorf("unexpected order: first %s, last %s", got[0].Payload, got[cap-1].Payload)
	}
}

func TestHistoryOverwritesOldest(t *testing.T) {
	cap := 5
	h := newHistory(cap)

	// Push cap+3 items (0..7), history should keep the most recent 5 (3..7)
	push(h, 0, cap+3)

	if h.len() != cap {
		t.Errorf("expected len %d, got %d", cap, h.len())
	}
	got := h.items()
	if len(got) != cap {
		t.Fatalf("expected %d items, got %d", cap, len(got))
	}
	for i := 0; i < cap; i++ {
		want := strconv.Itoa(i + 3)
		if got[i].Payload != want {
			t.Errorf("item %d: expected payload %s, got %s", i, want, got[i].Payload)
		}
	}
}

func TestHistoryManyWraps(t *testing.T) {
	h := newHistory(historySize)
	push(h, 0, historySize*3+7)

	got := h.items()
	if len(got) != historySize {
		t.Fatalf("expected %d items, got %d", historySize, len(got))
	}
	last := strconv.Itoa(historySize*3 + 6)
	if got[len(got)-1].Payload != last {
		t.Errorf("expected newest %s, got %s", last, got[len(got)-1].Payload)
	}
}
