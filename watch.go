package flowens

import (
	"context"

	"github.com/flow-platform/flowens/schema"
)

// AddWatch registers a taken name for periodic availability rechecks. The
// label goes into both the relational table and the pending pool the sweep
// job drains.
func (s *FlowEns) AddWatch(ctx context.Context, label, owner string) error {
	label = NormalizeLabel(label)
	if !ValidLabel(label) {
		return ErrInvalidLabel
	}

	status := schema.WatchStatusTaken
	available, err := s.reg.Available(ctx, label)
	if err == nil && available {
		status = schema.WatchStatusAvailable
	}

	if err := s.wdb.InsertWatchedDomain(schema.WatchedDomain{
		Label:  label,
		Owner:  owner,
		Status: status,
	}); err != nil {
		return err
	}
	if status == schema.WatchStatusAvailable {
		// already free, nothing to poll
		return nil
	}
	return s.store.PutWatchPool(label)
}

func (s *FlowEns) GetWatch(label string) (schema.WatchedDomain, error) {
	return s.wdb.GetWatchedDomain(NormalizeLabel(label))
}

func (s *FlowEns) RemoveWatch(label string) error {
	label = NormalizeLabel(label)
	if err := s.store.DelWatchPool(label); err != nil {
		log.Warn("s.store.DelWatchPool(label)", "err", err, "label", label)
	}
	return s.wdb.DeleteWatchedDomain(label)
}

func (s *FlowEns) GetActivities(owner string, cursorId, num int) ([]schema.Activity, error) {
	return s.wdb.GetActivitiesByOwner(owner, cursorId, num)
}

func (s *FlowEns) GetRegistrations(owner string) ([]schema.RegistrationRecord, error) {
	return s.wdb.GetRegistrationsByOwner(owner)
}
