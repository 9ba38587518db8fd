package dataset

import (
	"fmt"

	"taskrank/internal/store"
)

// Minimums are the smallest store contents worth training on. Zero values
// disable the corresponding check.
type Minimums struct {
	Snapshots int
	Processes int
	AppGroups int
}

// CheckSize validates store statistics against the configured minimums and
// returns a TooSmallError listing every shortfall.
func CheckSize(st *store.Stats, min Minimums) error {
	var shortfalls []string
	if st.Snapshots < min.Snapshots {
		shortfalls = append(shortfalls, fmt.Sprintf("snapshots: %d < %d", st.Snapshots, min.Snapshots))
	}
	if st.Processes < min.Processes {
		shortfalls = append(shortfalls, fmt.Sprintf("processes: %d < %d", st.Processes, min.Processes))
	}
	if st.AppGroups < min.AppGroups {
		shortfalls = append(shortfalls, fmt.Sprintf("app_groups: %d < %d", st.AppGroups, min.AppGroups))
	}
	if shortfalls != nil {
		return &TooSmallError{Shortfalls: shortfalls}
	}
	return nil
}
