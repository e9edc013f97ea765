package quote

import "testing"

func ptr(f float64) *float64 { return &f }

func TestSlotTransitions(t *testing.T) {
	t.Parallel()

	s := NewSlot("2330.TW", "1050")
	if s.State != StatePending || s.Display() != "1050" {
		t.Fatalf("new slot = %+v", s)
	}

	s.Resolve(Quote{Symbol: "2330.TW", Price: 1085.5, PreviousClose: ptr(1080)})
	if s.State != StateLive || s.Display() != "1085.5" {
		t.Fatalf("resolved slot = %+v display=%s", s, s.Display())
	}
	if s.Direction() != DirectionUp || s.ChangeText() != "▲ 5.50" {
		t.Fatalf("direction=%s change=%q", s.Direction(), s.ChangeText())
	}

	// settled slots ignore later transitions
	s.Fail()
	if s.State != StateLive {
		t.Fatalf("fail after resolve changed state to %s", s.State)
	}
}

func TestSlotFallback(t *testing.T) {
	t.Parallel()

	s := NewSlot("NVDA", "")
	s.Fail()
	if s.State != StateFallback {
		t.Fatalf("state = %s", s.State)
	}
	if s.Display() != "" || s.Direction() != DirectionNone || s.ChangeText() != "" {
		t.Fatalf("fallback slot leaks live data: %+v", s)
	}
	s.Resolve(Quote{Price: 1})
	if s.State != StateFallback {
		t.Fatal("resolve after fail changed state")
	}
}

func TestDirectionDownAndFlat(t *testing.T) {
	t.Parallel()

	down := NewSlot("A", "")
	down.Resolve(Quote{Price: 9.6, PreviousClose: ptr(10)})
	if down.Direction() != DirectionDown || down.ChangeText() != "▼ 0.40" {
		t.Fatalf("down: %s %q", down.Direction(), down.ChangeText())
	}

	flat := NewSlot("B", "")
	flat.Resolve(Quote{Price: 10, PreviousClose: ptr(10)})
	if flat.Direction() != DirectionFlat {
		t.Fatalf("flat: %s", flat.Direction())
	}

	noPrev := NewSlot("C", "")
	noPrev.Resolve(Quote{Price: 10})
	if noPrev.Direction() != DirectionNone {
		t.Fatalf("no previous close: %s", noPrev.Direction())
	}
}

func TestQuotePageURL(t *testing.T) {
	t.Parallel()

	if got := QuotePageURL("https://tw.stock.yahoo.com/quote/", "8069.TWO"); got != "https://tw.stock.yahoo.com/quote/8069.TWO" {
		t.Fatalf("got %s", got)
	}
}
