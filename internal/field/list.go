package field

import "errors"

var (
	ErrMissingID   = errors.New("field id is required")
	ErrDuplicateID = errors.New("field id already exists in list")
)

// Identified is anything kept in an ordered, id-addressed list.
type Identified interface {
	Ident() string
}

// Every list operation returns a new slice and leaves its input untouched.

func Index[T Identified](list []T, id string) int {
	for i, item := range list {
		if item.Ident() == id {
			return i
		}
	}
	return -1
}

func Find[T Identified](list []T, id string) (T, bool) {
	if i := Index(list, id); i >= 0 {
		return list[i], true
	}
	var zero T
	return zero, false
}

// Add appends item. Ids must be non-empty and unique within the list.
func Add[T Identified](list []T, item T) ([]T, error) {
	if item.Ident() == "" {
		return list, ErrMissingID
	}
	if Index(list, item.Ident()) >= 0 {
		return list, ErrDuplicateID
	}
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	return append(out, item), nil
}

// Update replaces the entry with the given id by fn(entry).
// An unknown id returns the list unchanged.
func Update[T Identified](list []T, id string, fn func(T) T) []T {
	i := Index(list, id)
	if i < 0 {
		return list
	}
	out := make([]T, len(list))
	copy(out, list)
	updated := fn(out[i])
	if updated.Ident() != id {
		// identity is stable across edits
		return list
	}
	out[i] = updated
	return out
}

func Remove[T Identified](list []T, id string) []T {
	out := make([]T, 0, len(list))
	for _, item := range list {
		if item.Ident() != id {
			out = append(out, item)
		}
	}
	return out
}

// Reorder moves the entry fromID into the position currently held by toID,
// shifting the entries in between. Missing ids leave the order as is.
func Reorder[T Identified](list []T, fromID, toID string) []T {
	from := Index(list, fromID)
	to := Index(list, toID)
	if from < 0 || to < 0 || from == to {
		return list
	}
	return Move(list, from, to)
}

// Move relocates the element at index from to index to.
func Move[T any](list []T, from, to int) []T {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return list
	}
	out := make([]T, 0, len(list))
	moved := list[from]
	for i, item := range list {
		if i == from {
			continue
		}
		out = append(out, item)
	}
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return out
}
