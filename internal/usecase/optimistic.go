package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentCommits bounds the fan-out of ExecuteAll below the database pool size.
const maxConcurrentCommits = 8

// Mutation is one user-initiated write: a local change plus the remote call that confirms it.
type Mutation struct {
	Name   string
	Apply  func()
	Commit func(ctx context.Context) error
}

// Coordinator runs mutations optimistically. A failed commit is compensated by a full
// reload of the authoritative collection, after which the failure is put on the banner.
// Mutations on the same entity are not serialised; the last local write wins until the
// next reload.
type Coordinator struct {
	scope    string
	reload   func(ctx context.Context) error
	report   func(msg string)
	recorder MetricsRecorder
}

func NewCoordinator(scope string, reload func(ctx context.Context) error, report func(msg string), recorder MetricsRecorder) *Coordinator {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Coordinator{
		scope:    scope,
		reload:   reload,
		report:   report,
		recorder: recorder,
	}
}

func (c *Coordinator) Execute(ctx context.Context, m Mutation) error {
	if m.Apply != nil {
		m.Apply()
	}

	if err := m.Commit(ctx); err != nil {
		c.reconcile(ctx, m.Name, err)
		return &TechnicalError{
			Code:    "MUTATION_FAILED",
			Message: fmt.Sprintf("%s failed: %v", m.Name, err),
			Err:     err,
		}
	}

	return nil
}

// ExecuteAll applies one local change and fans the commits out concurrently. It waits
// for every commit and reloads at most once, so a reload never races an in-flight write.
// There is no atomicity: commits that succeeded stay committed.
func (c *Coordinator) ExecuteAll(ctx context.Context, name string, apply func(), commits []func(ctx context.Context) error) error {
	if apply != nil {
		apply()
	}

	// Every commit runs to completion; errors are collected per index rather than
	// returned to the group, which would stop at the first one.
	errs := make([]error, len(commits))
	var g errgroup.Group
	g.SetLimit(maxConcurrentCommits)
	for i, commit := range commits {
		g.Go(func() error {
			errs[i] = commit(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}

	joined := errors.Join(failed...)
	c.reconcile(ctx, name, joined)
	return &TechnicalError{
		Code:    "MUTATION_FAILED",
		Message: fmt.Sprintf("%s: %d of %d failed: %s", name, len(failed), len(commits), bannerText(joined)),
		Err:     joined,
	}
}

func (c *Coordinator) reconcile(ctx context.Context, name string, cause error) {
	log.Printf("⚠️ [%s] %s failed, reloading: %v", c.scope, name, cause)
	c.recorder.RecordRollback(c.scope, name)

	// The request that triggered the write may already be gone; the reload must still run.
	if err := c.reload(context.WithoutCancel(ctx)); err != nil {
		log.Printf("❌ [%s] reload after failed %s: %v", c.scope, name, err)
		return
	}

	if c.report != nil {
		c.report(bannerText(cause))
	}
}

func bannerText(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
