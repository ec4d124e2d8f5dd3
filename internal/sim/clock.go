package sim

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
)

// DayLength is the number of ticks in one full day.
const DayLength = 24000

// MoonPhases is the length of the lunar cycle in days.
const MoonPhases = 8

// Clock is the world's cyclic time of day together with weather and moon phase.
// All methods are safe for concurrent use.
type Clock struct {
	mu      sync.Mutex
	time    int64
	day     int64
	weather agent.Weather
}

// NewClock creates a Clock at startTime on day zero.
//
// Precondition: startTime in [0, DayLength).
// Postcondition: Returns a non-nil *Clock.
func NewClock(startTime int64, weather agent.Weather) *Clock {
	if startTime < 0 || startTime >= DayLength {
		panic(fmt.Sprintf("sim.NewClock: start time %d out of range", startTime))
	}
	if weather == "" {
		weather = agent.WeatherClear
	}
	return &Clock{time: startTime, weather: weather}
}

// Advance moves the clock forward by ticks, rolling over into new days.
func (c *Clock) Advance(ticks int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.time + ticks
	c.day += total / DayLength
	c.time = total % DayLength
}

// SetWeather changes the current weather.
func (c *Clock) SetWeather(w agent.Weather) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weather = w
}

// Facts returns the current world facts.
func (c *Clock) Facts() agent.WorldFacts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return agent.WorldFacts{
		TimeOfDay: c.time,
		Weather:   c.weather,
		MoonPhase: int(c.day % MoonPhases),
	}
}

// ParseWeather resolves a weather name case-insensitively; "storm" is accepted for thunder.
func ParseWeather(s string) (agent.Weather, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clear":
		return agent.WeatherClear, nil
	case "rain":
		return agent.WeatherRain, nil
	case "thunder", "storm":
		return agent.WeatherThunder, nil
	}
	return "", fmt.Errorf("unknown weather %q", s)
}
