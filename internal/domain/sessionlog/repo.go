package sessionlog

import "context"

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	// List returns entries oldest first together with the total count.
	List(ctx context.Context, limit, offset int) ([]*Entry, int, error)
}
