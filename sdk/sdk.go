package sdk

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flow-platform/flowens/schema"
)

// SDK drives the whole commit-reveal flow against a flowens node: open an
// attempt, check, commit, wait out the maturation window, register.
type SDK struct {
	Cli *Client
}

func NewSDK(flowUrl string) *SDK {
	return &SDK{
		Cli: New(flowUrl),
	}
}

// RegisterName runs every stage and blocks until the name is registered or
// a stage fails. The maturation wait comes from the node, not a constant.
func (s *SDK) RegisterName(label string, years int, owner string) (schema.Attempt, error) {
	a, err := s.Cli.NewAttempt(owner, schema.NewAttemptReq{
		Label:         label,
		DurationYears: years,
	})
	if err != nil {
		return a, err
	}

	a, err = s.Cli.CheckAttempt(a.ID)
	if err != nil {
		return a, err
	}
	if a.Available == nil || !*a.Available {
		return a, fmt.Errorf("name %s is not available", label)
	}

	a, err = s.Cli.CommitAttempt(a.ID)
	if err != nil {
		return a, err
	}

	info, err := s.Cli.GetInfo()
	if err != nil {
		return a, err
	}
	time.Sleep(time.Duration(info.MinCommitmentAgeSec+1) * time.Second)

	for i := 0; i < 10; i++ {
		a, err = s.Cli.RegisterAttempt(a.ID)
		if err == nil {
			return a, nil
		}
		// the node reports the remaining wait; a short retry covers clock skew
		if strings.Contains(err.Error(), "commitment_too_young") {
			time.Sleep(5 * time.Second)
			continue
		}
		return a, err
	}
	return a, errors.New("registration did not mature in time")
}

// WatchUntilAvailable registers a watch and polls until the node reports the
// name free or the timeout passes.
func (s *SDK) WatchUntilAvailable(label, owner string, timeout time.Duration) (schema.WatchedDomain, error) {
	if err := s.Cli.AddWatch(label, owner); err != nil {
		return schema.WatchedDomain{}, err
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		wd, err := s.Cli.GetWatch(label)
		if err == nil && wd.Status == schema.WatchStatusAvailable {
			return wd, nil
		}
		time.Sleep(10 * time.Second)
	}
	return schema.WatchedDomain{}, errors.New("watch timed out")
}
