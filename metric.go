package flowens

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	MetricNameSpace = "flowens"
)

var (
	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "availability_checks_total",
			Help:      "name availability checks by result",
		},
		[]string{"result"},
	)
	commitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "commits_total",
			Help:      "commitments submitted on chain",
		},
	)
	registrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "registrations_total",
			Help:      "registration finalizations by status",
		},
		[]string{"status"},
	)
	renewalsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "renewals_total",
			Help:      "name renewals submitted",
		},
	)
	identityBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "identity_balance",
			Help:      "signer balance in ETH",
		},
		[]string{"address"},
	)
)

func init() {
	prometheus.MustRegister(
		availabilityChecks,
		commitsTotal,
		registrationsTotal,
		renewalsTotal,
		identityBalance,
	)
}

func metricAvailabilityCheck(result string) {
	availabilityChecks.WithLabelValues(result).Inc()
}

func metricCommit() {
	commitsTotal.Inc()
}

func metricRegistration(status string) {
	registrationsTotal.WithLabelValues(status).Inc()
}

func metricRenewal() {
	renewalsTotal.Inc()
}

func metricIdentityBalance(bal *big.Int, addr string) {
	eth, _ := decimal.NewFromBigInt(bal, -18).Float64()
	identityBalance.WithLabelValues(addr).Set(eth)
}
