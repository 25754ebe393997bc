package policy

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RecordKey is the fixed key of the singleton MFA-roles record.
const RecordKey = "mfa_roles"

// MFARoles maps a normalized (lowercase) role name to whether MFA is
// mandatory for that role.
type MFARoles map[string]bool

// Defaults returns the hardcoded safe policy: privileged roles require
// MFA, everyone else does not. Reads always merge the stored record
// over these, so an incomplete record never strips protection from a
// privileged role.
func Defaults() MFARoles {
	return MFARoles{
		"owner":      true,
		"admin":      true,
		"superadmin": true,
		"user":       false,
		"viewer":     false,
	}
}

// Store serves MFA policy reads and privileged writes. Authorization
// of the caller is the responsibility of the HTTP layer; the store
// itself only normalizes and persists.
type Store struct {
	repo Repo
}

func NewStore(repo Repo) *Store {
	return &Store{repo: repo}
}

// Get returns the effective policy: built-in defaults overlaid with
// the stored record. Any read failure, including "no record yet",
// falls back to the defaults.
func (s *Store) Get(ctx context.Context) MFARoles {
	merged := Defaults()
	stored, err := s.repo.Get(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoRecord) {
			log.Warn().Err(err).Msg("mfa policy read failed, serving defaults")
		}
		return merged
	}
	for role, required := range stored {
		merged[strings.ToLower(role)] = required
	}
	return merged
}

// Required reports whether MFA is mandatory for a role. Unknown roles
// default to not requiring MFA.
func (s *Store) Required(ctx context.Context, role string) bool {
	return s.Get(ctx)[strings.ToLower(strings.TrimSpace(role))]
}

// Set normalizes and persists a raw policy mapping: keys lowercased,
// empty keys dropped, values coerced to boolean. Returns the
// normalized mapping as persisted.
func (s *Store) Set(ctx context.Context, raw map[string]any) (MFARoles, error) {
	normalized := Normalize(raw)
	if err := s.repo.Upsert(ctx, normalized); err != nil {
		return nil, errors.Wrap(err, "[Store.Set] upsert")
	}
	return normalized, nil
}

// Normalize lowercases keys, drops empty keys, and coerces arbitrary
// JSON values to booleans.
func Normalize(raw map[string]any) MFARoles {
	normalized := make(MFARoles, len(raw))
	for key, value := range raw {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		normalized[key] = coerceBool(value)
	}
	return normalized
}

func coerceBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}
