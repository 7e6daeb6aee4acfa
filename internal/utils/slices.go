package utils

// Uniq returns the elements of collection with duplicates removed, keeping
// the position of the first occurrence of each element.
func Uniq[T comparable](collection []T) []T {
	result := make([]T, 0, len(collection))
	seen := make(map[T]struct{}, len(collection))

	for _, item := range collection {
		if _, ok := seen[item]; ok {
			continue
		}

		seen[item] = struct{}{}
		result = append(result, item)
	}

	return result
}

// Chunk splits collection into ceil(len/size) consecutive groups of at most size
// elements. The final group holds the remainder. A non-positive size places the whole
// collection into a single group, and an empty collection yields no groups.
func Chunk[T any](collection []T, size int) [][]T {
	if len(collection) == 0 {
		return nil
	}
	if size <= 0 || size >= len(collection) {
		return [][]T{collection}
	}

	groups := make([][]T, 0, (len(collection)+size-1)/size)
	for start := 0; start < len(collection); start += size {
		end := min(start+size, len(collection))
		groups = append(groups, collection[start:end:end])
	}

	return groups
}
