package condition

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
)

// ExprAgent is the view of an agent exposed to Expression conditions.
type ExprAgent struct {
	Type          string
	Name          string
	Health        float64
	MaxHealth     float64
	HealthPercent float64
	Armor         float64
	Height        float64
	HeldItem      string
	Privileged    bool
	InWater       bool
	OnFire        bool
	Sneaking      bool
	Sprinting     bool
	Effects       map[string]int
}

// ExprEnv is the environment Expression conditions compile against, e.g.
//
//	Caster.HealthPercent < 50 && HasTarget && Distance > 6
type ExprEnv struct {
	Caster    ExprAgent
	Target    ExprAgent
	HasTarget bool
	Distance  float64
	TimeOfDay int64
	Weather   string
	MoonPhase int
	Extra     map[string]string
}

// programs caches compiled expressions by source text.
var programs sync.Map

func compileExpression(src string) (*vm.Program, error) {
	if p, ok := programs.Load(src); ok {
		return p.(*vm.Program), nil
	}
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("expression must not be empty")
	}
	p, err := expr.Compile(src, expr.Env(ExprEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling expression %q: %w", src, err)
	}
	programs.Store(src, p)
	return p, nil
}

func exprAgent(f agent.Facts) ExprAgent {
	return ExprAgent{
		Type:          f.Type,
		Name:          f.Name,
		Health:        f.Health,
		MaxHealth:     f.MaxHealth,
		HealthPercent: f.HealthPercent(),
		Armor:         f.Armor,
		Height:        f.Position.Y,
		HeldItem:      f.HeldItem,
		Privileged:    f.Privileged,
		InWater:       f.InWater,
		OnFire:        f.OnFire,
		Sneaking:      f.Sneaking,
		Sprinting:     f.Sprinting,
		Effects:       f.StatusEffects,
	}
}

// NewExprEnv builds the expression environment for ctx.
func NewExprEnv(ctx Context, extra map[string]string) ExprEnv {
	env := ExprEnv{
		Caster:    exprAgent(ctx.Caster),
		TimeOfDay: ctx.World.TimeOfDay,
		Weather:   string(ctx.World.Weather),
		MoonPhase: ctx.World.MoonPhase,
		Extra:     extra,
	}
	if ctx.Target != nil {
		env.Target = exprAgent(*ctx.Target)
		env.HasTarget = true
		env.Distance = ctx.Caster.Position.DistanceTo(ctx.Target.Position)
	}
	return env
}

func evalExpression(s Spec, ctx Context) bool {
	p, err := compileExpression(s.Value)
	if err != nil {
		return false
	}
	out, err := expr.Run(p, NewExprEnv(ctx, s.Extra))
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}
