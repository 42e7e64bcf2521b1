package slugpolicy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gamecatalog/internal/normalize"
)

// maxCollisionAttempts caps the `-2`, `-3`, ... suffix search before falling
// back to an epoch-stamped slug, per spec.md §4.5.
const maxCollisionAttempts = 9999

// UniquenessChecker is the narrow read interface Manager needs from
// persistence: does slug already belong to a row other than excludeSelfID?
// Implemented by internal/persistence/postgres and internal/persistence/memory.
type UniquenessChecker interface {
	SlugExists(ctx context.Context, slug string, excludeSelfID *int64) (bool, error)
}

// Fallbacks names the synthetic identifiers Resolve falls back to (in order)
// when neither the preferred candidate nor the name-derived slug is usable.
type Fallbacks struct {
	StoreID    *int64
	MetaID     *int64
	InternalID *int64
}

// Input is one side's resolution request — Resolve is called twice per
// game, once for slug and once for originalSlug, each with its own Input.
type Input struct {
	SelfID    *int64
	Candidate string // preferred slug text, already slug-shaped or a raw name
	Name      string // raw name, used if Candidate is empty
	Fallbacks Fallbacks
}

// Manager resolves slug/originalSlug candidates to globally unique values.
type Manager struct {
	checker UniquenessChecker
	now     func() time.Time
}

// NewManager builds a Manager. now defaults to time.Now when nil, overridable
// in tests so the epochMs fallback is deterministic.
func NewManager(checker UniquenessChecker, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{checker: checker, now: now}
}

// Resolve returns a globally unique slug for in, appending a `-2`, `-3`, ...
// suffix on collision and falling back to `base-<epochMs>` past
// maxCollisionAttempts. Slug and originalSlug are resolved independently by
// calling Resolve twice with different Inputs.
func (m *Manager) Resolve(ctx context.Context, in Input) (string, error) {
	base := m.baseCandidate(in)
	if base == "" {
		return "", fmt.Errorf("slugpolicy: no usable candidate or fallback for input")
	}

	candidate := base
	for attempt := 1; attempt <= maxCollisionAttempts; attempt++ {
		taken, err := m.checker.SlugExists(ctx, candidate, in.SelfID)
		if err != nil {
			return "", fmt.Errorf("slugpolicy: check uniqueness: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = truncateWithSuffix(base, attempt+1)
	}

	return truncateWithSuffix(base, 0).withEpoch(m.now()), nil
}

func (m *Manager) baseCandidate(in Input) string {
	if in.Candidate != "" {
		if slug := normalize.SlugCandidate(in.Candidate); slug != "" {
			return slug
		}
	}
	if in.Name != "" {
		if slug := normalize.SlugCandidate(in.Name); slug != "" {
			return slug
		}
	}
	switch {
	case in.Fallbacks.StoreID != nil:
		return "store-" + strconv.FormatInt(*in.Fallbacks.StoreID, 10)
	case in.Fallbacks.MetaID != nil:
		return "meta-" + strconv.FormatInt(*in.Fallbacks.MetaID, 10)
	case in.Fallbacks.InternalID != nil:
		return "game-" + strconv.FormatInt(*in.Fallbacks.InternalID, 10)
	}
	return ""
}

// truncateWithSuffix appends "-N" to base, trimming base so the combined
// length never exceeds normalize.MaxSlugLength.
func truncateWithSuffix(base string, n int) suffixedSlug {
	if n == 0 {
		return suffixedSlug(base)
	}
	suffix := "-" + strconv.Itoa(n)
	maxBase := normalize.MaxSlugLength - len(suffix)
	if maxBase < 0 {
		maxBase = 0
	}
	trimmed := base
	if len(trimmed) > maxBase {
		trimmed = strings.TrimRight(trimmed[:maxBase], "-")
	}
	return suffixedSlug(trimmed + suffix)
}

// suffixedSlug is the intermediate result of truncateWithSuffix; it exists
// only to host withEpoch's more self-documenting call chain below.
type suffixedSlug string

func (s suffixedSlug) withEpoch(now time.Time) string {
	return string(s) + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}
