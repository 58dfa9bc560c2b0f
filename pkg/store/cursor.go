package store

import (
	"fmt"
	"strings"
)

// EventCursor encodes the position of an event row for cursor pagination.
// Zero-padded so lexicographic order matches chain order.
func EventCursor(block uint64, eventIndex uint32) string {
	return fmt.Sprintf("%020d/%010d", block, eventIndex)
}

// ParseEventCursor decodes an event cursor back to its chain coordinates.
// An empty cursor means "from the beginning".
func ParseEventCursor(cursor string) (block uint64, eventIndex uint32, err error) {
	if cursor == "" {
		return 0, 0, nil
	}
	parts := strings.SplitN(cursor, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed event cursor %q", cursor)
	}
	if _, err := fmt.Sscanf(parts[0], "%d", &block); err != nil {
		return 0, 0, fmt.Errorf("malformed event cursor %q: %w", cursor, err)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &eventIndex); err != nil {
		return 0, 0, fmt.Errorf("malformed event cursor %q: %w", cursor, err)
	}
	return block, eventIndex, nil
}
