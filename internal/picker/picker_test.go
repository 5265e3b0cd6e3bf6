package picker

import (
	"errors"
	"testing"
)

func TestPick_deterministic(t *testing.T) {
	candidates := []string{"사과", "바나나", "포도"}
	first, err := Pick("2024-06-01", candidates)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		got, err := Pick("2024-06-01", candidates)
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("run %d: got %q, want %q", i, got, first)
		}
	}
}

func TestPick_orderIndependent(t *testing.T) {
	a := []string{"apple", "banana", "grape", "melon"}
	b := []string{"melon", "grape", "banana", "apple"}
	got1, err := Pick("2024-06-01", a)
	if err != nil {
		t.Fatal(err)
	}
	got2, err := Pick("2024-06-01", b)
	if err != nil {
		t.Fatal(err)
	}
	if got1 != got2 {
		t.Errorf("order changed the pick: %q vs %q", got1, got2)
	}
}

func TestPick_dateChangesPick(t *testing.T) {
	// Not guaranteed for every pair of dates, but over a run of dates the
	// pick must vary; a constant result would mean the date is ignored.
	candidates := []string{"apple", "banana", "grape", "melon", "peach", "plum"}
	seen := make(map[string]bool)
	dates := []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04", "2024-06-05", "2024-06-06", "2024-06-07", "2024-06-08"}
	for _, d := range dates {
		got, err := Pick(d, candidates)
		if err != nil {
			t.Fatal(err)
		}
		seen[got] = true
	}
	if len(seen) < 2 {
		t.Errorf("pick never varied across %d dates: %v", len(dates), seen)
	}
}

func TestPick_trimsWhitespace(t *testing.T) {
	got, err := Pick("2024-06-01", []string{"  apple  "})
	if err != nil {
		t.Fatal(err)
	}
	if got != "apple" {
		t.Errorf("got %q, want trimmed %q", got, "apple")
	}
}

func TestPick_emptyCandidates(t *testing.T) {
	cases := [][]string{
		nil,
		{},
		{"", "   ", "\t"},
	}
	for _, c := range cases {
		_, err := Pick("2024-06-01", c)
		if !errors.Is(err, ErrEmptyCandidates) {
			t.Errorf("candidates %v: got err %v, want ErrEmptyCandidates", c, err)
		}
	}
}

func TestPick_duplicatesDoNotAffectResult(t *testing.T) {
	got1, err := Pick("2024-06-01", []string{"apple", "banana"})
	if err != nil {
		t.Fatal(err)
	}
	got2, err := Pick("2024-06-01", []string{"apple", "banana", "apple", "banana"})
	if err != nil {
		t.Fatal(err)
	}
	if got1 != got2 {
		t.Errorf("duplicates changed the pick: %q vs %q", got1, got2)
	}
}
