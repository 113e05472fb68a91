package sanitizer

import "sort"

// NormalizeSeats sorts the requested seat numbers and drops duplicates.
// Seat sets are stored and compared in this canonical form everywhere.
func NormalizeSeats(seats []int) []int {
	if len(seats) == 0 {
		return []int{}
	}

	seen := make(map[int]struct{}, len(seats))
	out := make([]int, 0, len(seats))
	for _, s := range seats {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	sort.Ints(out)
	return out
}
