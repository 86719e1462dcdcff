package username

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// candidateDigitLengths is the discriminator shape of an auto-generated
// candidate list: two 2-digit draws first, then one draw each of 3, 4, and
// 5 digits. Short discriminators are more memorable, so we try them first;
// the values themselves are random so there is no deterministic order in
// which popular nicknames get claimed.
var candidateDigitLengths = []int{2, 2, 3, 4, 5}

// CandidatesFrom pairs a nickname with a bounded set of random
// discriminators of increasing length. The returned ordering is
// significant: the server reserves the first available candidate.
func CandidatesFrom(nickname string) ([]Username, error) {
	if err := validateNickname(nickname); err != nil {
		return nil, err
	}

	candidates := make([]Username, 0, len(candidateDigitLengths))
	seen := make(map[string]bool, len(candidateDigitLengths))

	for _, digits := range candidateDigitLengths {
		d, err := randomDiscriminator(digits)
		if err != nil {
			return nil, err
		}
		if seen[d] {
			// Redraw once on a duplicate; submitting the same hash twice
			// wastes a candidate slot.
			if d, err = randomDiscriminator(digits); err != nil {
				return nil, err
			}
		}
		seen[d] = true
		candidates = append(candidates, Username{nickname: nickname, discriminator: d})
	}

	return candidates, nil
}

// randomDiscriminator draws a uniformly random discriminator with the given
// number of digits. Two-digit discriminators cover 1–99 (zero-padded);
// longer ones cover the full range without leading zeros.
func randomDiscriminator(digits int) (string, error) {
	var lo, hi int64 // inclusive bounds
	if digits == 2 {
		lo, hi = 1, 99
	} else {
		lo = 1
		for i := 1; i < digits; i++ {
			lo *= 10
		}
		hi = lo*10 - 1
	}

	n, err := rand.Int(rand.Reader, big.NewInt(hi-lo+1))
	if err != nil {
		return "", fmt.Errorf("draw discriminator: %w", err)
	}
	v := n.Int64() + lo

	if digits == 2 {
		return fmt.Sprintf("%02d", v), nil
	}
	return fmt.Sprintf("%d", v), nil
}
