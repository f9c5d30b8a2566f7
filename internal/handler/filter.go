package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/msomdec/taskmate/internal/domain"
)

// parseEq reads a PostgREST-style equality predicate ("eq.<value>").
func parseEq(raw string) (string, error) {
	value, ok := strings.CutPrefix(raw, "eq.")
	if !ok {
		return "", fmt.Errorf("%w: only eq. filters are supported", domain.ErrInvalidInput)
	}
	return value, nil
}

// parseTaskFilter converts query parameters into a task filter. Unknown
// parameters and orderings other than newest-first are rejected.
func parseTaskFilter(query url.Values) (domain.TaskFilter, error) {
	var filter domain.TaskFilter
	for key, values := range query {
		raw := values[len(values)-1]
		switch key {
		case "id":
			v, err := parseEq(raw)
			if err != nil {
				return filter, err
			}
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return filter, fmt.Errorf("%w: bad id %q", domain.ErrInvalidInput, v)
			}
			filter.ID = &id
		case "user_id":
			v, err := parseEq(raw)
			if err != nil {
				return filter, err
			}
			filter.OwnerID = v
		case "is_completed":
			v, err := parseEq(raw)
			if err != nil {
				return filter, err
			}
			done, err := strconv.ParseBool(v)
			if err != nil {
				return filter, fmt.Errorf("%w: bad is_completed %q", domain.ErrInvalidInput, v)
			}
			filter.Completed = &done
		case "order":
			if raw != "created_at.desc" {
				return filter, fmt.Errorf("%w: unsupported order %q", domain.ErrInvalidInput, raw)
			}
		case "select":
			// Every column is always returned.
		default:
			return filter, fmt.Errorf("%w: unknown parameter %q", domain.ErrInvalidInput, key)
		}
	}
	return filter, nil
}

// pinOwner restricts filter to the caller's rows. A filter naming another
// owner is refused.
func pinOwner(filter *domain.TaskFilter, userID string) error {
	if filter.OwnerID != "" && filter.OwnerID != userID {
		return domain.ErrForbidden
	}
	filter.OwnerID = userID
	return nil
}
