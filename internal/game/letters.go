package game

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// Alphabet is the full uppercase alphabet; the first DecoyPrefix letters are
// mixed into the decoy pool.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Config holds the spawn and movement tunables.
type Config struct {
	SpawnChance  float64 // per tick, while below MaxLive
	MaxLive      int     // cap on letters in flight
	TargetChance float64 // chance a spawn is the next needed letter
	DecoyPrefix  int     // alphabet letters added to the decoy pool
	EdgeMargin   float64 // x is drawn from [EdgeMargin, width-EdgeMargin)
	SpawnY       float64 // starting y, above the visible area
	MinSpeed     float64
	SpeedRange   float64 // speed is drawn from [MinSpeed, MinSpeed+SpeedRange)
	RetireMargin float64 // letters with y > height+RetireMargin are dropped
	Reward       int     // score per correct pop
	ReplaceOnPop bool    // spawn the next needed letter right after a correct pop
}

// DefaultConfig returns the standard gameplay tuning.
func DefaultConfig() Config {
	return Config{
		SpawnChance:  0.015,
		MaxLive:      1,
		TargetChance: 0.6,
		DecoyPrefix:  10,
		EdgeMargin:   40,
		SpawnY:       -60,
		MinSpeed:     0.8,
		SpeedRange:   1.0,
		RetireMargin: 0,
		Reward:       10,
		ReplaceOnPop: true,
	}
}

// Rand is the random source used for spawn decisions.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Generator makes the stochastic spawn decisions.
type Generator struct {
	cfg Config
	rnd Rand
	ids func() string
}

// NewGenerator returns a Generator drawing from rnd.
func NewGenerator(cfg Config, rnd Rand) *Generator {
	return &Generator{cfg: cfg, rnd: rnd, ids: randomID}
}

// ShouldSpawn rolls the per-tick spawn chance while below the live cap.
func (g *Generator) ShouldSpawn(live int) bool {
	if live >= g.cfg.MaxLive {
		return false
	}
	return g.rnd.Float64() < g.cfg.SpawnChance
}

// PickLetter chooses the letter for a new entity: usually the next needed
// letter, otherwise a decoy drawn from the word's letters plus an alphabet prefix.
func (g *Generator) PickLetter(word string, index int) string {
	upper := strings.ToUpper(word)
	var target string
	if index >= 0 && index < len(upper) {
		target = upper[index : index+1]
	}
	if g.rnd.Float64() < g.cfg.TargetChance && target != "" {
		return target
	}
	pool := upper + Alphabet[:g.cfg.DecoyPrefix]
	i := g.rnd.Intn(len(pool))
	return pool[i : i+1]
}

// NewLetter spawns an entity above the game area at a random column.
func (g *Generator) NewLetter(width float64, word string, index int) FallingLetter {
	letter := g.PickLetter(word, index)
	span := width - 2*g.cfg.EdgeMargin
	if span < 0 {
		span = 0
	}
	return FallingLetter{
		ID:        "letter-" + g.ids(),
		Letter:    letter,
		X:         g.rnd.Float64()*span + g.cfg.EdgeMargin,
		Y:         g.cfg.SpawnY,
		Speed:     g.rnd.Float64()*g.cfg.SpeedRange + g.cfg.MinSpeed,
		IsCorrect: strings.Contains(strings.ToUpper(word), letter),
	}
}

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
