package features

import "testing"

func TestVariantString(t *testing.T) {
	cases := map[Variant]string{
		Blob:    "blob",
		Binary:  "binary",
		Variant(9): "unknown variant 9",
	}

	for v, want := range cases {
		if got := v.String(); got != want {
			t.Errorf("Variant(%d).String() = %q, want %q", v, got, want)
		}
	}
}

func TestRatioTestAcceptsAndRejects(t *testing.T) {
	pairs := []MatchPair{
		{QueryIdx: 0, Best: Candidate{TrainIdx: 1, Distance: 10}, Second: Candidate{TrainIdx: 2, Distance: 100}},
		{QueryIdx: 1, Best: Candidate{TrainIdx: 3, Distance: 90}, Second: Candidate{TrainIdx: 4, Distance: 100}},
	}

	got := RatioTest(pairs, 0.7)

	if len(got) != 1 {
		t.Fatalf("expected exactly 1 surviving correspondence, got %d", len(got))
	}

	if got[0].QueryIdx != 0 || got[0].TrainIdx != 1 {
		t.Fatalf("unexpected surviving correspondence: %+v", got[0])
	}
}

func TestRatioTestDefaultsWhenRatioUnset(t *testing.T) {
	pairs := []MatchPair{
		{QueryIdx: 0, Best: Candidate{TrainIdx: 1, Distance: 1}, Second: Candidate{TrainIdx: 2, Distance: 100}},
	}

	got := RatioTest(pairs, 0)

	if len(got) != 1 {
		t.Fatalf("expected default ratio (%v) to accept a strong match", DefaultNNRatio)
	}
}
