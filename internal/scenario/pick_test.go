package scenario

import (
	"math/rand/v2"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"github.com/kuitang/ghflow/internal/errs"
)

func testPick_ReturnsListedURL(t *rapid.T) {
	urls := rapid.SliceOfN(
		rapid.StringMatching(`https://github\.com/octocat/[a-z\-]{1,16}`), 1, 30,
	).Draw(t, "urls")
	seed := rapid.Uint64().Draw(t, "seed")

	got, err := Pick(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), urls)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if !slices.Contains(urls, got) {
		t.Fatalf("Pick returned %q not in %v", got, urls)
	}
}

func TestPick_ReturnsListedURL(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testPick_ReturnsListedURL)
}

func TestPick_EmptyList(t *testing.T) {
	t.Parallel()
	_, err := Pick(nil, nil)
	if errs.CodeOf(err) != errs.NotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestPick_ReachesEveryEntry(t *testing.T) {
	t.Parallel()
	urls := []string{"a", "b", "c", "d"}
	rng := rand.New(rand.NewPCG(1, 2))
	seen := map[string]int{}
	for range 400 {
		got, err := Pick(rng, urls)
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		seen[got]++
	}
	for _, u := range urls {
		if seen[u] == 0 {
			t.Fatalf("entry %q never picked in 400 draws: %v", u, seen)
		}
	}
}

func TestPick_NilRandUsesGlobalSource(t *testing.T) {
	t.Parallel()
	got, err := Pick(nil, []string{"only"})
	if err != nil || got != "only" {
		t.Fatalf("Pick(nil) = %q, %v", got, err)
	}
}
