package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/javiermolinar/docket/internal/event"
)

// resolveIDs expands ID prefixes against the user's events. A prefix must
// match exactly one event; unknown prefixes are passed through unchanged
// so the service reports them as not found.
func (a *App) resolveIDs(ctx context.Context, refs []string) ([]string, error) {
	events, err := a.service.ListEvents(ctx, a.userID())
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(refs))
	for i, ref := range refs {
		id, err := matchID(events, ref)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (a *App) resolveID(ctx context.Context, ref string) (string, error) {
	ids, err := a.resolveIDs(ctx, []string{ref})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func matchID(events []*event.Event, ref string) (string, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")

	var matches []string
	for _, e := range events {
		if e.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(e.ID, ref) {
			matches = append(matches, e.ID)
		}
	}

	switch len(matches) {
	case 0:
		return ref, nil
	case 1:
		return matches[0], nil
	default:
		return "", event.Invalid(fmt.Sprintf("id prefix %q matches %d events", ref, len(matches)))
	}
}
