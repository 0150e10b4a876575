package service

// PageSize is the number of messages returned per page.
const PageSize = 50

// Paginate returns the window of items starting at start, and the start of
// the next window or -1 when this window reaches the end. items are not
// reordered.
func Paginate[T any](items []T, start int) ([]T, int, error) {
	if start < 0 || start > len(items) {
		return nil, 0, OutOfRange("START_OUT_OF_RANGE", "start is beyond the number of messages")
	}
	end := start + PageSize
	if end >= len(items) {
		return items[start:], -1, nil
	}
	return items[start:end], end, nil
}
