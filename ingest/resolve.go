package ingest

import (
	"context"
	"fmt"

	sheaf "github.com/ogersten/sheaf"
)

// Action is the duplicate-resolution decision for one document.
type Action int

const (
	// ActionInsert means no prior chunks exist; ingest fresh.
	ActionInsert Action = iota

	// ActionSkip means chunks exist and force-update is off.
	ActionSkip

	// ActionReplace means chunks exist and force-update is on; the old set
	// is superseded atomically.
	ActionReplace
)

// ResolveDuplicate decides how to handle a document against the store's
// current contents. The check is existence-only; content is never compared.
func ResolveDuplicate(ctx context.Context, store sheaf.Store, documentID string, forceUpdate bool) (Action, error) {
	exists, err := store.Exists(ctx, documentID)
	if err != nil {
		return ActionInsert, fmt.Errorf("existence check for %s: %w", documentID, err)
	}
	switch {
	case !exists:
		return ActionInsert, nil
	case forceUpdate:
		return ActionReplace, nil
	default:
		return ActionSkip, nil
	}
}
