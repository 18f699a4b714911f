package catalog

import "fmt"

const availabilityKeyFormat = "book:%s:lib:%s:avail"

// AvailabilityKey is the cache key holding the copies of a book at a branch.
func AvailabilityKey(bookID, branchID string) string {
	return fmt.Sprintf(availabilityKeyFormat, bookID, branchID)
}
