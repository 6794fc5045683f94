package logx

import (
	"time"

	"go.uber.org/zap"
)

type Timer struct {
	start time.Time
	id    string
	comp  string
	op    string
}

func Start(id, comp, op string) *Timer {
	return &Timer{
		start: time.Now(),
		id:    id,
		comp:  comp,
		op:    op,
	}
}

// End logs the elapsed time and returns it.
func (t *Timer) End() time.Duration {
	elapsed := time.Since(t.start)
	current.Load().Debug("timing",
		zap.String("component", t.comp),
		zap.String("id", t.id),
		zap.String("op", t.op),
		zap.Duration("elapsed", elapsed),
	)
	return elapsed
}
