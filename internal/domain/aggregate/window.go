package aggregate

import (
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/outcome"
)

// sample is what one prior row contributes to every aggregate.
type sample struct {
	top      float64
	dnf      float64
	points   float64
	delta    float64
	hasDelta bool
	win      bool
	podium   bool
}

func sampleOf(r model.Result, o model.Outcome) sample {
	s := sample{points: r.Points, win: outcome.IsWin(r), podium: outcome.IsPodium(r)}
	if o.ReachedTop {
		s.top = 1
	}
	if o.DidNotFinish {
		s.dnf = 1
	}
	s.delta, s.hasDelta = outcome.PositionDelta(r)
	return s
}

// window is a bounded deque holding the most recent samples, oldest first.
type window struct {
	width int
	buf   []sample
}

func newWindow(width int) *window {
	return &window{width: width, buf: make([]sample, 0, width)}
}

// push appends s, evicting the oldest sample when full.
func (w *window) push(s sample) {
	if len(w.buf) == w.width {
		copy(w.buf, w.buf[1:])
		w.buf = w.buf[:w.width-1]
	}
	w.buf = append(w.buf, s)
}

// Means are recomputed over the window contents in order so results do not
// depend on the history of evictions.

func (w *window) topRate() Optional {
	var sum float64
	for _, s := range w.buf {
		sum += s.top
	}
	return mean(sum, len(w.buf))
}

func (w *window) dnfRate() Optional {
	var sum float64
	for _, s := range w.buf {
		sum += s.dnf
	}
	return mean(sum, len(w.buf))
}

func (w *window) pointsAvg() Optional {
	var sum float64
	for _, s := range w.buf {
		sum += s.points
	}
	return mean(sum, len(w.buf))
}

func (w *window) deltaAvg() Optional {
	var sum float64
	n := 0
	for _, s := range w.buf {
		if s.hasDelta {
			sum += s.delta
			n++
		}
	}
	return mean(sum, n)
}

// career accumulates every prior sample without bound.
type career struct {
	count     int
	top       float64
	dnf       float64
	points    float64
	wins      int
	podiums   int
	deltaSum  float64
	deltaRows int
}

func (c *career) push(s sample) {
	c.count++
	c.top += s.top
	c.dnf += s.dnf
	c.points += s.points
	if s.win {
		c.wins++
	}
	if s.podium {
		c.podiums++
	}
	if s.hasDelta {
		c.deltaSum += s.delta
		c.deltaRows++
	}
}
