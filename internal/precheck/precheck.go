// Package precheck probes the remote store for an object before a transfer
// is attempted, so missing or forbidden objects fail with a precise reason.
package precheck

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gdcfetch/internal/models"
	"github.com/dmitrijs2005/gdcfetch/internal/remote"
)

type Outcome string

const (
	Found     Outcome = "FOUND"
	NotFound  Outcome = "NOT_FOUND"
	Forbidden Outcome = "FORBIDDEN"
	Transient Outcome = "TRANSIENT_ERROR"
)

type Result struct {
	Outcome  Outcome
	Size     int64
	Message  string
	Attempts int
}

type Checker struct {
	store  remote.ObjectStore
	policy remote.Policy
}

func New(store remote.ObjectStore, policy remote.Policy) *Checker {
	return &Checker{store: store, policy: policy}
}

// Check issues a metadata probe for the entry's object key, retrying
// transient failures under the checker's policy. A cancelled context is
// returned as an error; every other failure becomes an Outcome.
func (c *Checker) Check(ctx context.Context, e models.ManifestEntry) (Result, error) {
	var info remote.ObjectInfo
	attempts, err := c.policy.Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		info, err = c.store.Stat(ctx, e.ObjectKey())
		return err
	})

	if err != nil && ctx.Err() != nil {
		return Result{Attempts: attempts}, ctx.Err()
	}
	if err == nil {
		return Result{Outcome: Found, Size: info.Size, Attempts: attempts}, nil
	}

	res := Result{Message: err.Error(), Attempts: attempts}
	switch {
	case remote.IsNotFound(err):
		res.Outcome = NotFound
	case remote.IsForbidden(err):
		res.Outcome = Forbidden
	case remote.IsTransient(err):
		res.Outcome = Transient
	default:
		// Permanent errors of another kind (bad request, unexpected redirect)
		// cannot succeed either; they surface like a failed transfer.
		res.Outcome = Transient
		var re *remote.Error
		if !errors.As(err, &re) {
			res.Message = "probe failed: " + err.Error()
		}
	}
	return res, nil
}
