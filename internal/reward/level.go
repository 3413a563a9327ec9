package reward

import "sort"

// levelThresholds[i] is the cumulative XP needed to reach level i+2.
var levelThresholds = []int{1000, 5000, 10000, 25000, 50000, 100000, 250000, 500000, 1000000}

var custodyThresholds = []int{100, 300, 600, 1000, 1500, 2100, 2800, 3600, 4500}

// LevelFromXP maps cumulative XP to a level in [1,10]. It is a non-decreasing step function.
func LevelFromXP(xp int) int {
	return stepLevel(levelThresholds, xp)
}

// CustodyLevelFromXP maps custody XP to its informational level in [1,10].
func CustodyLevelFromXP(xp int) int {
	return stepLevel(custodyThresholds, xp)
}

// NextLevelXP returns the XP at which the next level starts, or -1 at the top level.
func NextLevelXP(xp int) int {
	idx := sort.SearchInts(levelThresholds, xp+1)
	if idx >= len(levelThresholds) {
		return -1
	}
	return levelThresholds[idx]
}

func stepLevel(thresholds []int, xp int) int {
	if xp < 0 {
		xp = 0
	}
	// Count thresholds <= xp.
	return sort.SearchInts(thresholds, xp+1) + 1
}
