// Package engine drives autonomous ability use: every tick it advances each
// agent's cooldown and casting state, and on an agent type's check ticks it
// selects an ability, acquires a target, and requests execution from the
// environment.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spelledmobs/internal/game/ability"
	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
	"github.com/cory-johannsen/spelledmobs/internal/game/casting"
	"github.com/cory-johannsen/spelledmobs/internal/game/condition"
	"github.com/cory-johannsen/spelledmobs/internal/game/dice"
	"github.com/cory-johannsen/spelledmobs/internal/game/selection"
	"github.com/cory-johannsen/spelledmobs/internal/game/targeting"
)

// DefaultMaxLevel bounds force-cast levels when Config.MaxLevel is unset.
const DefaultMaxLevel = 10

var (
	ErrEmptyAbilityID = errors.New("ability id must not be empty")
	ErrInvalidLevel   = errors.New("level out of range")
	ErrInvalidCaster  = errors.New("caster is unknown or not alive")
	ErrInvalidTarget  = errors.New("target is unknown or not alive")
	ErrCastFailed     = errors.New("environment rejected the cast")
)

// Flags are the runtime-adjustable engine switches.
type Flags struct {
	DebugLogging bool
	// ShowEffects is forwarded to the environment with every cast request.
	ShowEffects bool
	// SearchRadius is the horizontal half-extent used for target acquisition.
	SearchRadius float64
}

// Config holds construction parameters for an Engine.
type Config struct {
	// MaxLevel is the highest level ForceCast accepts; 0 means DefaultMaxLevel.
	MaxLevel int
	Flags    Flags
	// Scripts backs script conditions; nil makes them evaluate false.
	Scripts condition.ScriptCaller
}

// Engine owns all per-agent decision state. Tick must be called from a single
// goroutine; the administrative methods are safe to call concurrently with it.
type Engine struct {
	env      agent.Environment
	catalog  *ability.Holder
	store    *casting.Store
	selector *selection.Selector
	finder   *targeting.Finder
	rand     dice.Source
	scripts  condition.ScriptCaller
	logger   *zap.Logger
	maxLevel int
	flags    atomic.Pointer[Flags]
	lastTick atomic.Uint64
}

// New constructs an Engine.
//
// Precondition: env, src, and logger must be non-nil. A nil catalog behaves as empty.
// Postcondition: Returns an Engine with no per-agent state.
func New(cfg Config, env agent.Environment, catalog *ability.Catalog, src dice.Source, logger *zap.Logger) *Engine {
	if env == nil {
		panic("engine.New: env must not be nil")
	}
	if src == nil {
		panic("engine.New: src must not be nil")
	}
	if logger == nil {
		panic("engine.New: logger must not be nil")
	}
	maxLevel := cfg.MaxLevel
	if maxLevel <= 0 {
		maxLevel = DefaultMaxLevel
	}
	e := &Engine{
		env:      env,
		catalog:  ability.NewHolder(catalog),
		store:    casting.NewStore(),
		selector: selection.New(src),
		rand:     src,
		scripts:  cfg.Scripts,
		logger:   logger,
		maxLevel: maxLevel,
	}
	e.SetFlags(cfg.Flags)
	e.finder = targeting.NewFinder(env, logger, e.debug)
	return e
}

func (e *Engine) debug() bool {
	return e.flags.Load().DebugLogging
}

// Tick runs one engine tick over every agent the environment reports.
//
// Postcondition: Returns the number of abilities successfully executed.
func (e *Engine) Tick(ctx context.Context, tick uint64) int {
	e.lastTick.Store(tick)
	cat := e.catalog.Load()
	world := e.env.EnvironmentFacts()
	casts := 0
	for _, id := range e.env.Agents() {
		if ctx.Err() != nil {
			break
		}
		if e.tickAgent(ctx, cat, world, id, tick) {
			casts++
		}
	}
	return casts
}

func (e *Engine) tickAgent(ctx context.Context, cat *ability.Catalog, world agent.WorldFacts, id agent.ID, tick uint64) bool {
	busy := e.store.Advance(id, tick)
	facts, ok := e.env.AgentFacts(id)
	if !ok || !facts.Alive || !e.env.IsAgentValid(id) {
		return false
	}
	entries, interval := cat.Lookup(facts.Type)
	if len(entries) == 0 || tick%uint64(interval) != 0 {
		return false
	}
	if busy {
		if e.debug() {
			e.logger.Debug("agent is casting", zap.Stringer("agent", id))
		}
		return false
	}
	cooldown := func(abilityID string) int { return e.store.Cooldown(id, abilityID) }
	if !selection.AnyReady(entries, cooldown) {
		return false
	}

	flags := e.Flags()
	target, hasTarget := e.finder.Find(facts, flags.SearchRadius)
	cctx := condition.Context{
		Caster:  facts,
		World:   world,
		Env:     e.env,
		Rand:    e.rand,
		Scripts: e.scripts,
	}
	if hasTarget {
		cctx.Target = &target
	}
	choice, ok := e.selector.Choose(entries, cooldown, cctx)
	if !ok {
		if e.debug() {
			e.logger.Debug("no eligible ability", zap.Stringer("agent", id), zap.String("type", facts.Type))
		}
		return false
	}
	if !hasTarget {
		if e.debug() {
			e.logger.Debug("ability chosen without target",
				zap.Stringer("agent", id),
				zap.String("ability", choice.Entry.ID),
			)
		}
		return false
	}
	entry := choice.Entry
	return e.commit(ctx, id, target.ID, entry.ID, choice.Level, &entry, tick)
}

// commit requests the cast and, on success, performs cooldown and casting
// bookkeeping for entry. A nil entry skips bookkeeping.
func (e *Engine) commit(ctx context.Context, caster, target agent.ID, abilityID string, level int, entry *ability.Entry, tick uint64) bool {
	req := agent.CastRequest{
		Caster:      caster,
		Target:      target,
		AbilityID:   abilityID,
		Level:       level,
		ShowEffects: e.Flags().ShowEffects,
	}
	if !e.env.ExecuteAbility(ctx, req) {
		if e.debug() {
			e.logger.Debug("cast failed",
				zap.Stringer("agent", caster),
				zap.String("ability", abilityID),
				zap.Int("level", level),
			)
		}
		return false
	}
	fields := []zap.Field{
		zap.Stringer("agent", caster),
		zap.Stringer("target", target),
		zap.String("ability", abilityID),
		zap.Int("level", level),
		zap.Uint64("tick", tick),
	}
	if entry != nil {
		if entry.Durational() {
			e.store.BeginCasting(caster, casting.State{
				AbilityID:     abilityID,
				Level:         level,
				StartTick:     tick,
				DurationTicks: entry.ActionDurationTicks,
			})
		}
		cd := e.selector.Cooldown(*entry)
		e.store.ArmCooldown(caster, abilityID, cd)
		fields = append(fields, zap.Int("cooldown_ticks", cd))
	}
	e.logger.Info("ability cast", fields...)
	return true
}

// ForceCast casts abilityID at level from caster onto target, bypassing
// selection. Any casting state the caster holds is cleared first. When the
// caster's catalog section lists abilityID, a successful cast arms its cooldown
// and casting state exactly as a selected cast would.
//
// Postcondition: Returns a wrapped sentinel error on invalid input with no state
// mutated, ErrCastFailed if the environment rejects the cast, or nil.
func (e *Engine) ForceCast(ctx context.Context, caster, target agent.ID, abilityID string, level int) error {
	abilityID = strings.TrimSpace(abilityID)
	if abilityID == "" {
		return ErrEmptyAbilityID
	}
	if level < 1 || level > e.maxLevel {
		return fmt.Errorf("%w: %d not in [1,%d]", ErrInvalidLevel, level, e.maxLevel)
	}
	facts, ok := e.env.AgentFacts(caster)
	if !ok || !facts.Alive || !e.env.IsAgentValid(caster) {
		return fmt.Errorf("%w: %s", ErrInvalidCaster, caster)
	}
	tf, ok := e.env.AgentFacts(target)
	if target == agent.None || !ok || !tf.Alive || !e.env.IsAgentValid(target) {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}

	e.store.ClearCasting(caster)
	var entry *ability.Entry
	if en, ok := e.catalog.Load().Entry(facts.Type, abilityID); ok {
		entry = &en
	}
	if !e.commit(ctx, caster, target, abilityID, level, entry, e.lastTick.Load()) {
		return fmt.Errorf("%w: %s", ErrCastFailed, abilityID)
	}
	return nil
}

// Reload publishes a new catalog. Per-agent cooldown and casting state survive.
func (e *Engine) Reload(c *ability.Catalog) {
	e.catalog.Swap(c)
	e.logger.Info("ability catalog reloaded", zap.Int("agent_types", len(c.AgentTypes())))
}

// Catalog returns the current catalog snapshot.
func (e *Engine) Catalog() *ability.Catalog {
	return e.catalog.Load()
}

// ClearAllState discards cooldown and casting state for every agent.
func (e *Engine) ClearAllState() {
	e.store.ClearAll()
	e.logger.Info("cleared all agent state")
}

// ClearAgent discards cooldown and casting state for id.
func (e *Engine) ClearAgent(id agent.ID) {
	e.store.Remove(id)
}

// StopCasting clears id's casting state and reports whether one was active.
func (e *Engine) StopCasting(id agent.ID) bool {
	return e.store.ClearCasting(id)
}

// AgentDeparted drops all state for an agent the environment no longer hosts.
func (e *Engine) AgentDeparted(id agent.ID) {
	e.store.Remove(id)
	if e.debug() {
		e.logger.Debug("agent departed", zap.Stringer("agent", id))
	}
}

// Flags returns the current flags.
func (e *Engine) Flags() Flags {
	return *e.flags.Load()
}

// SetFlags replaces the flags. A non-positive SearchRadius selects
// targeting.DefaultSearchRadius.
func (e *Engine) SetFlags(f Flags) {
	if f.SearchRadius <= 0 {
		f.SearchRadius = targeting.DefaultSearchRadius
	}
	e.flags.Store(&f)
}
