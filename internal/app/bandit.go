package app

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strings"
	"time"

	"trickia-quiz/internal/domain"
)

// DefaultDiscount weights older sessions when the posterior is updated;
// smaller values favour recent results.
const DefaultDiscount = 0.85

// Selection buckets.
const (
	BucketWeak   = "weak"
	BucketMid    = "mid"
	BucketStrong = "strong"
)

var difficulties = []string{"easy", "medium", "hard"}

// PriorState is the uninformed posterior of a theme never played.
func PriorState(theme string) domain.BanditState {
	return domain.BanditState{Theme: theme, Alpha: 1, Beta: 1, Mean: 0.5}
}

// BetaMean returns alpha/(alpha+beta), 0.5 when both are zero.
func BetaMean(alpha, beta float64) float64 {
	if alpha+beta <= 0 {
		return 0.5
	}
	return alpha / (alpha + beta)
}

// UpdateBandit folds one session's results into a theme posterior.
func UpdateBandit(state domain.BanditState, correct, total int, discount float64, now time.Time) domain.BanditState {
	wrong := total - correct
	if wrong < 0 {
		wrong = 0
	}
	state.Alpha = discount*state.Alpha + float64(correct)
	state.Beta = discount*state.Beta + float64(wrong)
	state.Mean = BetaMean(state.Alpha, state.Beta)
	state.UpdatedAt = now
	return state
}

// RelativeBuckets splits themes by confidence: the lowest 30% are weak, the
// highest 30% strong, the rest mid. Each end holds at least one theme, so with
// very few themes mid may be empty. Unknown themes score 0.5.
func RelativeBuckets(themes []string, scores map[string]float64) (weak, mid, strong []string) {
	if len(themes) == 0 {
		return nil, nil, nil
	}
	ranked := make([]string, len(themes))
	copy(ranked, themes)
	score := func(t string) float64 {
		if v, ok := scores[t]; ok {
			return v
		}
		return 0.5
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) < score(ranked[j])
	})

	n := len(ranked)
	edge := int(math.RoundToEven(0.3 * float64(n)))
	if edge < 1 {
		edge = 1
	}
	if edge > n {
		edge = n
	}
	weak = ranked[:edge]
	strong = ranked[n-edge:]

	inEdge := make(map[string]bool, 2*edge)
	for _, t := range weak {
		inEdge[t] = true
	}
	for _, t := range strong {
		inEdge[t] = true
	}
	for _, t := range ranked {
		if !inEdge[t] {
			mid = append(mid, t)
		}
	}
	return weak, mid, strong
}

// ChooseBucket maps a uniform draw in [0,1) onto a bucket: 50% strong,
// 30% mid, 20% weak.
func ChooseBucket(r float64) string {
	switch {
	case r < 0.5:
		return BucketStrong
	case r < 0.8:
		return BucketMid
	default:
		return BucketWeak
	}
}

// ChooseDifficulty picks the target difficulty for a bucket. intn draws the
// mid bucket's difficulty.
func ChooseDifficulty(bucket string, intn func(int) int) string {
	switch bucket {
	case BucketStrong:
		return "hard"
	case BucketWeak:
		return "easy"
	default:
		return difficulties[intn(len(difficulties))]
	}
}

// bucketThemes resolves the candidate themes for a bucket, falling back to
// mid and then to every allowed theme when a bucket is empty.
func bucketThemes(bucket string, weak, mid, strong, allowed []string) []string {
	switch {
	case bucket == BucketStrong && len(strong) > 0:
		return strong
	case bucket == BucketWeak && len(weak) > 0:
		return weak
	case len(mid) > 0:
		return mid
	default:
		return allowed
	}
}

// QuestionHash fingerprints a prompt, ignoring case and whitespace runs.
func QuestionHash(prompt string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
