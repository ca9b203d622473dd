package solver

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cpmech/gosl/la"
)

// FallbackPolicy escalates to a more robust linear solver when the primary
// solve diverges. The escalation shape (bounded
// retries, each attempt a step up in robustness) is modelled on
// backoff.BackOff's Retry loop rather than its timing: NextBackOff's
// return only gates "try again vs give up", the actual wait is zero since
// a linear re-solve, not a clock, is what changes between attempts.
type FallbackPolicy struct {
	// Promote builds and factorises a replacement solver for the given
	// attempt (1-indexed), e.g. GMRESPromotion's attempt 1 switches to
	// GMRES and attempt 2 re-initialises it. Returns the new solver to
	// retry SolveR with.
	Promote    func(attempt int, kb *la.Triplet) (la.LinSol, error)
	MaxRetries int
}

// Retry runs the escalation loop: on each attempt, Promote builds a more
// robust solver, then SolveR is retried against it. Returns whether the
// solve eventually succeeded, how many extra attempts it took, and the
// last error if not. On success lin is left pointing at whichever solver
// instance finally converged.
func (f FallbackPolicy) Retry(lin *la.LinSol, kb *la.Triplet, wb, fb []float64) (ok bool, attempts int, err error) {
	if f.Promote == nil || f.MaxRetries <= 0 {
		return false, 0, nil
	}

	b := backoff.WithMaxRetries(&zeroWaitBackOff{}, uint64(f.MaxRetries))
	attempt := 0
	var lastErr error

	opErr := backoff.Retry(func() error {
		attempt++
		promoted, promErr := f.Promote(attempt, kb)
		if promErr != nil {
			lastErr = promErr
			return promErr
		}
		if solveErr := promoted.SolveR(wb, fb, false); solveErr != nil {
			lastErr = solveErr
			return solveErr
		}
		*lin = promoted
		return nil
	}, b)

	attempts = attempt
	if opErr != nil {
		return false, attempts, lastErr
	}
	return true, attempts, nil
}

// zeroWaitBackOff satisfies backoff.BackOff with no actual delay: the cost
// of a fallback attempt here is a linear re-solve, not wall-clock time, so
// there is nothing worth sleeping for between attempts.
type zeroWaitBackOff struct{}

func (*zeroWaitBackOff) NextBackOff() time.Duration { return 0 }
func (*zeroWaitBackOff) Reset()                     {}

// GMRESPromotion is the default Promote for the basin solver: attempt 1
// switches from the direct factorisation solver to GMRES, attempt 2
// re-initialises and re-factorises GMRES with the same settings except
// verbose on (symmetric=false in both), further attempts are refused.
// Neither attempt changes GMRES's restart length or iteration cap.
func GMRESPromotion() func(attempt int, kb *la.Triplet) (la.LinSol, error) {
	return func(attempt int, kb *la.Triplet) (la.LinSol, error) {
		switch attempt {
		case 1, 2:
			lin := la.GetSolver("gmres")
			if err := lin.InitR(kb, false, attempt == 2, false); err != nil {
				return nil, err
			}
			if err := lin.Fact(); err != nil {
				return nil, err
			}
			return lin, nil
		default:
			return nil, errTooManyAttempts
		}
	}
}

var errTooManyAttempts = fallbackExhausted("fallback attempts exhausted")

type fallbackExhausted string

func (e fallbackExhausted) Error() string { return string(e) }
