package grading

import (
	"errors"
	"fmt"
)

// BandCount 诊断等级数：1:基础, 2:初级, 3:中级, 4:高级
const BandCount = 4

// Band is one proficiency band. Min is the inclusive lower bound; the upper
// bound is the next band's Min (exclusive), or 100 inclusive for the last band.
type Band struct {
	Level int     `json:"level"`
	Name  string  `json:"name"`
	Min   float64 `json:"min"`
}

func DefaultBands() []Band {
	return []Band{
		{Level: 1, Name: "foundation", Min: 0},
		{Level: 2, Name: "beginner", Min: 25},
		{Level: 3, Name: "intermediate", Min: 50},
		{Level: 4, Name: "advanced", Min: 75},
	}
}

type Leveler struct {
	bands []Band
}

// NewLeveler validates bands and numbers them 1..BandCount in ascending order.
func NewLeveler(bands []Band) (*Leveler, error) {
	if len(bands) != BandCount {
		return nil, fmt.Errorf("expected %d diagnostic bands, got %d", BandCount, len(bands))
	}
	if bands[0].Min != 0 {
		return nil, errors.New("first diagnostic band must start at 0")
	}

	out := make([]Band, len(bands))
	for i, b := range bands {
		if b.Min < 0 || b.Min > 100 {
			return nil, fmt.Errorf("band %q lower bound %.2f outside [0,100]", b.Name, b.Min)
		}
		if i > 0 && b.Min <= bands[i-1].Min {
			return nil, fmt.Errorf("band %q lower bound must be greater than %.2f", b.Name, bands[i-1].Min)
		}
		out[i] = Band{Level: i + 1, Name: b.Name, Min: b.Min}
	}
	return &Leveler{bands: out}, nil
}

// Level maps a percentage to its band. A value on a boundary belongs to the higher band.
func (l *Leveler) Level(percentage float64) Band {
	chosen := l.bands[0]
	for _, b := range l.bands {
		if percentage >= b.Min {
			chosen = b
		}
	}
	return chosen
}

func (l *Leveler) Bands() []Band {
	out := make([]Band, len(l.bands))
	copy(out, l.bands)
	return out
}
