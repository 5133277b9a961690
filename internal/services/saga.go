package services

import (
	"github.com/sirupsen/logrus"
)

// sagaStep pairs a forward action with the compensation that undoes it.
// Compensations are best-effort: they run during rollback and their own
// failures are logged, not propagated.
type sagaStep struct {
	name       string
	action     func() error
	compensate func() error
}

// saga runs a linear sequence of compensable steps. When a step fails, the
// compensations of every completed step run in reverse order and the step's
// error is returned. This keeps the rollback path explicit and testable
// without any lock or worker machinery around it.
type saga struct {
	logger    *logrus.Logger
	completed []sagaStep
}

func newSaga(logger *logrus.Logger) *saga {
	return &saga{logger: logger}
}

// run executes one step. On success the step is remembered for rollback; on
// failure all previously completed steps are compensated and the error is
// returned.
func (s *saga) run(step sagaStep) error {
	if err := step.action(); err != nil {
		s.logger.WithError(err).WithField("step", step.name).Warn("Workflow step failed, rolling back")
		s.rollback()
		return err
	}
	s.completed = append(s.completed, step)
	return nil
}

// rollback compensates completed steps in reverse order
func (s *saga) rollback() {
	for i := len(s.completed) - 1; i >= 0; i-- {
		step := s.completed[i]
		if step.compensate == nil {
			continue
		}
		if err := step.compensate(); err != nil {
			s.logger.WithError(err).WithField("step", step.name).Error("Compensation failed")
		}
	}
	s.completed = nil
}
