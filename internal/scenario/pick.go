package scenario

import (
	"math/rand/v2"

	"github.com/kuitang/ghflow/internal/errs"
)

// Pick returns one of urls uniformly at random. A nil rng uses the global
// source.
func Pick(rng *rand.Rand, urls []string) (string, error) {
	if len(urls) == 0 {
		return "", errs.New(errs.NotFound, "no repositories listed")
	}
	var i int
	if rng == nil {
		i = rand.IntN(len(urls))
	} else {
		i = rng.IntN(len(urls))
	}
	return urls[i], nil
}
