// Package verify implements the resumable two-phase verification pipeline.
// Each candidate fingerprint is submitted to the oracle twice; only two
// agreeing responses with a non-empty key count as a verified match.
package verify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/keysearch-cli/internal/model"
	"github.com/sells-group/keysearch-cli/internal/resilience"
	"github.com/sells-group/keysearch-cli/pkg/oracle"
)

// state tracks one candidate through the verification protocol.
type state int

const (
	statePending state = iota
	stateSubmit1
	stateSubmit2
	stateCompare
	stateMatch
	stateMismatch
	stateFailed
)

// Ledger records terminal candidate outcomes durably. A fingerprint handed
// to AddProcessed or AddFailed must never be resubmitted by a later run.
type Ledger interface {
	AddProcessed(fp model.Fingerprint) error
	AddFailed(fp model.Fingerprint) error
}

// Sink persists the verified match that ends the run.
type Sink interface {
	Persist(match model.VerifiedMatch) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(match model.VerifiedMatch) error

// Persist calls f.
func (f SinkFunc) Persist(match model.VerifiedMatch) error { return f(match) }

// Observer receives a progress callback after every terminal candidate
// outcome. done counts candidates that reached a terminal state this run;
// total is the number of candidates the run started with.
type Observer interface {
	Progress(done, total int)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(done, total int)

// Progress calls f.
func (f ObserverFunc) Progress(done, total int) { f(done, total) }

// Summary is the final tally of one engine run.
type Summary struct {
	Total     int // candidates the run started with
	Processed int // compared, no match
	Failed    int // no usable response on one of the two submissions
	Match     *model.VerifiedMatch
}

// Engine drives candidates through the verification state machine one at a
// time, in source order. The oracle's statefulness and rate behavior are
// unknown, so there are no concurrent in-flight verifications.
type Engine struct {
	oracle   oracle.Client
	ledger   Ledger
	sink     Sink
	observer Observer
	limiter  *rate.Limiter
}

// Option configures the engine.
type Option func(*Engine)

// WithObserver sets the progress observer.
func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		e.observer = obs
	}
}

// WithRateLimit paces oracle submissions at rps requests per second.
// Zero or negative disables pacing.
func WithRateLimit(rps float64) Option {
	return func(e *Engine) {
		if rps > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates an engine over the given oracle client, checkpoint ledger,
// and result sink.
func New(client oracle.Client, ledger Ledger, sink Sink, opts ...Option) *Engine {
	e := &Engine{
		oracle: client,
		ledger: ledger,
		sink:   sink,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run verifies candidates sequentially until a match is found or the
// sequence is exhausted. The first match wins: it is persisted through the
// sink and no later candidate is ever submitted. A candidate interrupted
// mid-verification by context cancellation is left out of every checkpoint
// set, so a restart re-attempts it.
func (e *Engine) Run(ctx context.Context, candidates []model.Fingerprint) (*Summary, error) {
	summary := &Summary{Total: len(candidates)}
	log := zap.L().With(zap.Int("candidates", len(candidates)))
	log.Info("verify: starting run")

	done := 0
	for _, fp := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, eris.Wrap(err, "verify: run cancelled")
		}

		outcome, match, err := e.verifyOne(ctx, fp)
		if err != nil {
			return summary, err
		}

		switch outcome {
		case stateMatch:
			summary.Match = match
			if err := e.sink.Persist(*match); err != nil {
				return summary, eris.Wrap(err, "verify: persist match")
			}
			done++
			e.reportProgress(done, summary.Total)
			log.Info("verify: match found, halting",
				zap.String("fingerprint", string(match.Fingerprint)),
			)
			return summary, nil

		case stateMismatch:
			if err := e.ledger.AddProcessed(fp); err != nil {
				return summary, err
			}
			summary.Processed++

		case stateFailed:
			if err := e.ledger.AddFailed(fp); err != nil {
				return summary, err
			}
			summary.Failed++
		}

		done++
		e.reportProgress(done, summary.Total)
	}

	log.Info("verify: candidates exhausted without a match",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// verifyOne runs a single candidate through the state machine. It returns
// the terminal state and, for stateMatch, the verified match. Only context
// cancellation during pacing bubbles up as an error; oracle failures are
// absorbed into stateFailed.
func (e *Engine) verifyOne(ctx context.Context, fp model.Fingerprint) (state, *model.VerifiedMatch, error) {
	log := zap.L().With(zap.String("fingerprint", string(fp)))

	var first, second *oracle.Response
	st := statePending

	for {
		switch st {
		case statePending:
			st = stateSubmit1

		case stateSubmit1:
			resp, err := e.submit(ctx, fp)
			if err != nil {
				if ctx.Err() != nil {
					return st, nil, eris.Wrap(ctx.Err(), "verify: cancelled during first submission")
				}
				// No usable response: transient-error classification, not a
				// verification mismatch. The second submission is skipped.
				log.Warn("verify: first submission got no response",
					zap.String("class", resilience.ClassifyError(err)),
					zap.Error(err),
				)
				return stateFailed, nil, nil
			}
			first = resp
			st = stateSubmit2

		case stateSubmit2:
			resp, err := e.submit(ctx, fp)
			if err != nil {
				if ctx.Err() != nil {
					return st, nil, eris.Wrap(ctx.Err(), "verify: cancelled during second submission")
				}
				log.Warn("verify: second submission got no response",
					zap.String("class", resilience.ClassifyError(err)),
					zap.Error(err),
				)
				return stateFailed, nil, nil
			}
			second = resp
			st = stateCompare

		case stateCompare:
			// Both responses present. A match needs two non-empty keys that
			// agree byte for byte; anything else is a mismatch.
			if first.HasKey() && second.HasKey() && first.Key == second.Key {
				return stateMatch, &model.VerifiedMatch{Fingerprint: fp, Key: first.Key}, nil
			}
			log.Debug("verify: responses do not agree on a key")
			return stateMismatch, nil, nil
		}
	}
}

// submit performs one paced oracle exchange.
func (e *Engine) submit(ctx context.Context, fp model.Fingerprint) (*oracle.Response, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := e.oracle.Submit(ctx, string(fp))
	if err != nil {
		return nil, err
	}
	zap.L().Debug("verify: oracle responded",
		zap.String("fingerprint", string(fp)),
		zap.Bool("has_key", resp.HasKey()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

func (e *Engine) reportProgress(done, total int) {
	if e.observer != nil {
		e.observer.Progress(done, total)
	}
}
