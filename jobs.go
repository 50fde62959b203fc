package flowens

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/flow-platform/flowens/schema"
)

const watchBatchSize = 100

func (s *FlowEns) runJobs() {
	s.scheduler.Every(30).Seconds().SingletonMode().Do(s.updateGasPrice)
	s.scheduler.Every(5).Minute().SingletonMode().Do(s.updateCommitmentAges)
	s.scheduler.Every(int(s.watchInterval().Seconds())).Seconds().SingletonMode().Do(s.runWatchJobs)
	s.scheduler.Every(30).Seconds().SingletonMode().Do(s.sweepStaleAttempts)
	s.scheduler.Every(5).Minute().SingletonMode().Do(s.updateIdentityBalance)

	s.scheduler.StartAsync()
}

// watchInterval reads the operator-tunable sweep cadence from the settings
// table, falling back to one minute.
func (s *FlowEns) watchInterval() time.Duration {
	if s.config != nil {
		if iv := s.config.GetWatchInterval(); iv > 0 {
			return iv
		}
	}
	return time.Minute
}

func (s *FlowEns) updateGasPrice() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	price, err := s.reg.SuggestGasPrice(ctx)
	if err != nil {
		log.Error("s.reg.SuggestGasPrice(ctx)", "err", err)
		return
	}
	s.cache.UpdateGasPrice(price)
}

func (s *FlowEns) updateCommitmentAges() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	minAge, err := s.reg.MinCommitmentAge(ctx)
	if err != nil {
		log.Error("s.reg.MinCommitmentAge(ctx)", "err", err)
		return
	}
	maxAge, err := s.reg.MaxCommitmentAge(ctx)
	if err != nil {
		log.Error("s.reg.MaxCommitmentAge(ctx)", "err", err)
		return
	}
	s.cache.UpdateCommitmentAges(minAge, maxAge)
	if s.config != nil {
		s.config.SetMinCommitmentAge(minAge)
		s.config.SetMaxCommitmentAge(maxAge)
	}
	if err := s.store.SaveCommitmentAges(int64(minAge.Seconds()), int64(maxAge.Seconds())); err != nil {
		log.Warn("s.store.SaveCommitmentAges", "err", err)
	}
}

// runWatchJobs sweeps the watch pending pool and rechecks availability
// concurrently. A label that came free is recorded, announced and removed
// from the pool.
func (s *FlowEns) runWatchJobs() {
	labels, err := s.store.LoadWatchPool(watchBatchSize)
	if err != nil {
		log.Error("s.store.LoadWatchPool(watchBatchSize)", "err", err)
		return
	}
	if len(labels) == 0 {
		return
	}

	log.Debug("load watch pending pool", "number", len(labels))
	var wg sync.WaitGroup
	p, _ := ants.NewPoolWithFunc(10, func(i interface{}) {
		defer wg.Done()
		label := i.(string)
		if err := s.processWatchJob(label); err != nil {
			log.Error("processWatchJob", "err", err, "label", label)
			return
		}
	})
	defer p.Release()

	for _, label := range labels {
		wg.Add(1)
		_ = p.Invoke(label)
	}
	wg.Wait()
}

func (s *FlowEns) processWatchJob(label string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	available, err := s.reg.Available(ctx, label)
	if err != nil {
		// transient; keep the label in the pool and mark the row
		if uerr := s.wdb.UpdateWatchedDomainStatus(label, schema.WatchStatusError, false); uerr != nil {
			log.Error("s.wdb.UpdateWatchedDomainStatus", "err", uerr, "label", label)
		}
		return err
	}

	if !available {
		return s.wdb.UpdateWatchedDomainStatus(label, schema.WatchStatusTaken, false)
	}

	if err := s.wdb.UpdateWatchedDomainStatus(label, schema.WatchStatusAvailable, true); err != nil {
		return err
	}
	if err := s.store.DelWatchPool(label); err != nil {
		log.Error("s.store.DelWatchPool(label)", "err", err, "label", label)
	}

	wd, err := s.wdb.GetWatchedDomain(label)
	if err == nil {
		s.recordActivity(schema.ActivityWatchHit, label+"."+schema.DefaultTLD, wd.Owner, "", schema.ActivityCompleted, map[string]interface{}{
			"label": label,
		})
	}
	s.publishEvent(WatchTopic, schema.AvailableResp{Name: label + "." + schema.DefaultTLD, Available: true})
	log.Info("watched domain became available", "label", label)
	return nil
}

func (s *FlowEns) sweepStaleAttempts() {
	swept := s.attemptMg.SweepStale(s.maxCommitmentAge())
	if len(swept) > 0 {
		log.Info("swept stale attempts", "number", len(swept))
	}
}

func (s *FlowEns) updateIdentityBalance() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	addr := s.identity.Address()
	bal, err := s.reg.BalanceAt(ctx, addr)
	if err != nil {
		log.Error("s.reg.BalanceAt(ctx, addr)", "err", err)
		return
	}
	metricIdentityBalance(bal, addr.Hex())
}
