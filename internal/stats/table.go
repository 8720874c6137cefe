package stats

import "sort"

// SortTable orders table rows the way the league table is displayed:
// points, then goal difference, then goals, then name and ID to keep the
// order deterministic.
func SortTable(rows []PlayerTotals) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDiff != b.GoalDiff {
			return a.GoalDiff > b.GoalDiff
		}
		if a.Goals != b.Goals {
			return a.Goals > b.Goals
		}
		if a.PlayerName != b.PlayerName {
			return a.PlayerName < b.PlayerName
		}
		return a.PlayerID < b.PlayerID
	})
}
