package main

import (
	"context"
	"fmt"

	"github.com/robalobadob/letterpop/assets"
	"github.com/robalobadob/letterpop/internal/database"
	"github.com/robalobadob/letterpop/internal/settings"
)

// localOwner keys the terminal player's settings record.
const localOwner = "local"

// openPrefs opens the settings database at path. When that fails the game
// still runs on an in-memory store, and the error says why nothing will
// persist.
func openPrefs(ctx context.Context, path string) (settings.Store, func(), error) {
	db, err := database.Open(path)
	if err != nil {
		return settings.NewMemoryStore(), func() {}, fmt.Errorf("open %s: %w", path, err)
	}
	if err := database.Migrate(ctx, db, assets.Migrations()); err != nil {
		db.Close()
		return settings.NewMemoryStore(), func() {}, fmt.Errorf("migrate %s: %w", path, err)
	}
	return settings.NewSQLStore(db), func() { db.Close() }, nil
}

// toggle flips the setting bound to key r.
func toggle(p settings.AccessibilitySettings, r rune) (settings.AccessibilitySettings, bool) {
	switch r {
	case 'v':
		p.VoiceEnabled = !p.VoiceEnabled
	case 'g':
		p.GestureEnabled = !p.GestureEnabled
	case 'c':
		p.HighContrast = !p.HighContrast
	case 'L':
		p.LargeText = !p.LargeText
	case 'm':
		p.ReducedMotion = !p.ReducedMotion
	default:
		return p, false
	}
	return p, true
}
