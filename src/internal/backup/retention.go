package backup

import (
	"fmt"
	"os"
)

// Cleanup deletes every eligible record's file and catalog entry. A failure
// on one file is recorded and the batch continues; cleanup is best-effort.
func (s *Store) Cleanup(policy RetentionPolicy) (*CleanupResult, error) {
	eligible, err := s.ListEligibleForCleanup(policy)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{}
	for _, record := range eligible {
		if err := os.Remove(record.FilePath); err != nil && !os.IsNotExist(err) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: failed to delete file: %v", record.ID, err))
			continue
		}
		if err := s.Delete(record.ID); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: failed to delete record: %v", record.ID, err))
			continue
		}
		result.Removed++
		result.FreedSpace += record.Size
	}
	return result, nil
}

// SimulateCleanup reports what Cleanup would do without mutating anything.
// It shares the eligibility query with Cleanup, so the two always agree on
// the selected set.
func (s *Store) SimulateCleanup(policy RetentionPolicy) (*CleanupResult, error) {
	eligible, err := s.ListEligibleForCleanup(policy)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{}
	for _, record := range eligible {
		result.Removed++
		result.FreedSpace += record.Size
	}
	return result, nil
}
