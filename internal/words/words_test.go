package words

import (
	"testing"
	"time"
)

func TestInitLoadsEmbeddedList(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !Contains("apple") || !Contains("KIWI") {
		t.Errorf("embedded list missing defaults: %v", List())
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Apple":    "apple",
		"  kiwi ":  "kiwi",
		"":         Fallback,
		"123":      Fallback,
		"ba-na na": "banana",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNextNeverRepeats(t *testing.T) {
	Set([]string{"apple", "plum", "kiwi"})
	defer Set(nil)
	for i := 0; i < 50; i++ {
		if got := Next("apple"); got == "apple" {
			t.Fatal("Next returned the current word")
		}
	}
	Set([]string{"plum"})
	if got := Next("plum"); got != "plum" {
		t.Errorf("single-word list: got %q", got)
	}
}

func TestSetFiltersInvalid(t *testing.T) {
	Set([]string{"Apple", "apple", "x", "no way", "cherry"})
	defer Set(nil)
	got := List()
	if len(got) != 2 || got[0] != "apple" || got[1] != "cherry" {
		t.Errorf("List = %v, want [apple cherry]", got)
	}
}

func TestDailyStableForDate(t *testing.T) {
	Set([]string{"apple", "plum", "kiwi", "melon"})
	defer Set(nil)
	now := time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC)
	w1, d1 := Daily(now, "s")
	w2, d2 := Daily(now.Add(20*time.Hour), "s")
	if w1 != w2 || d1 != d2 || d1 != "2026-10-19" {
		t.Errorf("Daily gave %s/%s and %s/%s", w1, d1, w2, d2)
	}
}

func TestDailyDateIsUTC(t *testing.T) {
	Set([]string{"apple"})
	defer Set(nil)
	// 05:00 at +10 is still the previous day in UTC.
	now := time.Date(2026, 3, 2, 5, 0, 0, 0, time.FixedZone("UTC+10", 10*3600))
	if _, d := Daily(now, "s"); d != "2026-03-01" {
		t.Errorf("date = %q, want 2026-03-01", d)
	}
}

func TestDailyFallbackWhenEmpty(t *testing.T) {
	Set(nil)
	if w, _ := Daily(time.Now(), "s"); w != Fallback {
		t.Errorf("Daily on empty list = %q", w)
	}
}

func TestPickVariesWithSalt(t *testing.T) {
	seen := map[int]bool{}
	for _, s := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		i := pick(s, "2026-01-01", 1000)
		if i < 0 || i >= 1000 {
			t.Fatalf("pick(%q) = %d out of range", s, i)
		}
		seen[i] = true
	}
	if len(seen) < 2 {
		t.Error("salt should influence the pick")
	}
}

func TestRandomFallbackWhenEmpty(t *testing.T) {
	Set(nil)
	if got := Random(); got != Fallback {
		t.Errorf("Random on empty list = %q", got)
	}
}
