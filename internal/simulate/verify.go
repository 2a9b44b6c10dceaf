package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/sailrank/internal/adapters/standings"
)

// ErrInconsistent reports standings that contradict themselves.
var ErrInconsistent = errors.New("inconsistent standings")

// VerifyLeaderboard checks that entries are a valid leaderboard prefix:
// ratings never increase and ranks follow competition ranking (1, 2, 2, 4).
func VerifyLeaderboard(entries []standings.Entry) error {
	for i, e := range entries {
		if i > 0 && e.Rating > entries[i-1].Rating {
			return fmt.Errorf("%w: %s (%.4f) ranks below %s (%.4f)",
				ErrInconsistent, e.Participant, e.Rating, entries[i-1].Participant, entries[i-1].Rating)
		}
		want := i + 1
		if i > 0 && e.Rating == entries[i-1].Rating {
			want = entries[i-1].Rank
		}
		if e.Rank != want {
			return fmt.Errorf("%w: %s has rank %d, want %d", ErrInconsistent, e.Participant, e.Rank, want)
		}
	}
	return nil
}

// VerifyRank checks that a single rank lookup agrees with its leaderboard
// entry.
func VerifyRank(board, single standings.Entry) error {
	if board.Rank != single.Rank || board.Rating != single.Rating {
		return fmt.Errorf("%w: %s is %d (%.4f) on the leaderboard but %d (%.4f) by rank",
			ErrInconsistent, board.Participant, board.Rank, board.Rating, single.Rank, single.Rating)
	}
	return nil
}

// Concordance returns the share of entry pairs whose rating order agrees
// with their hidden skill order. Pairs with unknown skill are skipped; it
// returns 0 when no pair is comparable.
func Concordance(entries []standings.Entry, skills map[string]float64) float64 {
	var agree, total int
	for i := range entries {
		si, ok := skills[entries[i].Participant]
		if !ok {
			continue
		}
		for j := i + 1; j < len(entries); j++ {
			sj, ok := skills[entries[j].Participant]
			if !ok || entries[i].Rating == entries[j].Rating || si == sj {
				continue
			}
			total++
			if si > sj {
				agree++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(agree) / float64(total)
}
