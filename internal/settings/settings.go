// internal/settings/settings.go
//
// Accessibility settings model and persistence.
//
// Responsibilities:
//   - Define AccessibilitySettings and its defaults.
//   - Parse stored JSON leniently (missing or broken data → defaults).
//   - Apply partial JSON patches (sjson on top of the current record).
//   - Persist one record per owner under a fixed key (SQLite or memory).
//
// Owners are either account ids or anonymous cookie ids; the HTTP layer
// decides which.

package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Key is the storage key of the settings record.
const Key = "accessibility-settings"

// ErrInvalidPatch is returned for patches that are not a JSON object of
// boolean fields.
var ErrInvalidPatch = errors.New("settings: invalid patch")

// AccessibilitySettings are the player's presentation and input preferences.
type AccessibilitySettings struct {
	HighContrast   bool `json:"highContrast"`
	ReducedMotion  bool `json:"reducedMotion"`
	LargeText      bool `json:"largeText"`
	VoiceEnabled   bool `json:"voiceEnabled"`
	GestureEnabled bool `json:"gestureEnabled"`
}

// fields lists the JSON names of every setting.
var fields = []string{"highContrast", "reducedMotion", "largeText", "voiceEnabled", "gestureEnabled"}

// Defaults returns the settings used when nothing valid is stored.
func Defaults() AccessibilitySettings {
	return AccessibilitySettings{VoiceEnabled: true}
}

// Parse decodes a stored record. Invalid JSON yields Defaults; fields that are
// missing or not booleans keep their default value.
func Parse(raw []byte) AccessibilitySettings {
	s := Defaults()
	if !gjson.ValidBytes(raw) {
		return s
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return s
	}
	for _, f := range fields {
		v := doc.Get(f)
		if v.Type != gjson.True && v.Type != gjson.False {
			continue
		}
		s.set(f, v.Bool())
	}
	return s
}

func (s *AccessibilitySettings) set(field string, v bool) {
	switch field {
	case "highContrast":
		s.HighContrast = v
	case "reducedMotion":
		s.ReducedMotion = v
	case "largeText":
		s.LargeText = v
	case "voiceEnabled":
		s.VoiceEnabled = v
	case "gestureEnabled":
		s.GestureEnabled = v
	}
}

// Patch applies a partial JSON object to cur. Unknown keys are ignored;
// known keys must be booleans.
func Patch(cur AccessibilitySettings, patch []byte) (AccessibilitySettings, error) {
	if !gjson.ValidBytes(patch) || !gjson.ParseBytes(patch).IsObject() {
		return cur, ErrInvalidPatch
	}
	doc, err := json.Marshal(cur)
	if err != nil {
		return cur, err
	}
	for _, f := range fields {
		v := gjson.GetBytes(patch, f)
		if !v.Exists() {
			continue
		}
		if v.Type != gjson.True && v.Type != gjson.False {
			return cur, fmt.Errorf("%w: %s must be a boolean", ErrInvalidPatch, f)
		}
		if doc, err = sjson.SetBytes(doc, f, v.Bool()); err != nil {
			return cur, err
		}
	}
	return Parse(doc), nil
}

// Store persists settings per owner.
type Store interface {
	Load(ctx context.Context, owner string) (AccessibilitySettings, error)
	Save(ctx context.Context, owner string, s AccessibilitySettings) error
	// Claim copies from's record to to when to has none yet.
	Claim(ctx context.Context, from, to string) error
}

// ---------------------------------------------------------------------------

// SQLStore keeps settings in the settings table.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLStore returns a store over an already migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) Load(ctx context.Context, owner string) (AccessibilitySettings, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE owner_id=? AND key=?`, owner, Key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), fmt.Errorf("load settings: %w", err)
	}
	return Parse([]byte(raw)), nil
}

func (s *SQLStore) Save(ctx context.Context, owner string, v AccessibilitySettings) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (owner_id, key, value, updated_at) VALUES (?,?,?,?)
		ON CONFLICT(owner_id, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		owner, Key, string(raw), s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *SQLStore) Claim(ctx context.Context, from, to string) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO settings (owner_id, key, value, updated_at)
		SELECT ?, key, value, updated_at FROM settings WHERE owner_id=? AND key=?`,
		to, from, Key)
	if err != nil {
		return fmt.Errorf("claim settings: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------

// MemoryStore keeps raw records in a map. Used by tests, and by the terminal
// client when its database cannot be opened.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, owner string) (AccessibilitySettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.recs[owner]
	if !ok {
		return Defaults(), nil
	}
	return Parse(raw), nil
}

func (m *MemoryStore) Save(_ context.Context, owner string, v AccessibilitySettings) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.recs[owner] = raw
	m.mu.Unlock()
	return nil
}

// SaveRaw stores an unvalidated record, as a browser could.
func (m *MemoryStore) SaveRaw(owner string, raw []byte) {
	m.mu.Lock()
	m.recs[owner] = append([]byte(nil), raw...)
	m.mu.Unlock()
}

func (m *MemoryStore) Claim(_ context.Context, from, to string) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[to]; ok {
		return nil
	}
	if raw, ok := m.recs[from]; ok {
		m.recs[to] = raw
	}
	return nil
}
