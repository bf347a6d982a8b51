package modkit

import (
	"sejmcollect/internal/platform/config"
	"sejmcollect/internal/platform/logger"
)

// Deps is what every module builder receives from the command that runs it
type Deps struct {
	Log *logger.Logger // nil -> process root logger
	Cfg config.Conf
}

// Logger returns a child of Deps.Log tagged with component=name
func (d Deps) Logger(name string) *logger.Logger {
	base := d.Log
	if base == nil {
		base = logger.Get()
	}
	if name == "" {
		return base
	}
	l := base.With().Str("component", name).Logger()
	return &l
}
