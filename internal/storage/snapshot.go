package storage

import "fmt"

// Snapshot reads applications, dealflow entries, the activity log and goals
// inside one read transaction, so the dashboard never mixes two states.
func (s *Store) Snapshot() (Snapshot, error) {
	var snap Snapshot
	tx, err := s.db.Begin()
	if err != nil {
		return Snapshot{}, fmt.Errorf("beginning snapshot: %w", err)
	}
	defer tx.Rollback()

	if snap.Applications, err = listApplications(tx, ApplicationFilter{}); err != nil {
		return Snapshot{}, fmt.Errorf("reading applications: %w", err)
	}
	if snap.Dealflow, err = listDealflowEntries(tx, DealflowFilter{}); err != nil {
		return Snapshot{}, fmt.Errorf("reading dealflow: %w", err)
	}
	if snap.Events, err = activityEvents(tx); err != nil {
		return Snapshot{}, fmt.Errorf("reading activity: %w", err)
	}
	if snap.Goals, err = weeklyGoals(tx); err != nil {
		return Snapshot{}, fmt.Errorf("reading goals: %w", err)
	}
	return snap, nil
}
