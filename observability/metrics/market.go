package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics tracks the settlement core's operational counters.
type MarketMetrics struct {
	listingsCreated    prometheus.Counter
	settlements        prometheus.Counter
	claimsRejected     *prometheus.CounterVec
	authorizationsUsed prometheus.Counter
	authRejected       *prometheus.CounterVec
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the process-wide settlement metrics registry.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			listingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_listings_created_total",
				Help: "Count of listings created with locked collateral.",
			}),
			settlements: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_settlements_total",
				Help: "Count of proof-gated settlements that moved collateral.",
			}),
			claimsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_claims_rejected_total",
				Help: "Count of rejected purchase claims by reason.",
			}, []string{"reason"}),
			authorizationsUsed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_authorizations_used_total",
				Help: "Count of consumed withdrawal authorizations.",
			}),
			authRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_authorizations_rejected_total",
				Help: "Count of rejected withdrawal authorizations by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			marketRegistry.listingsCreated,
			marketRegistry.settlements,
			marketRegistry.claimsRejected,
			marketRegistry.authorizationsUsed,
			marketRegistry.authRejected,
		)
	})
	return marketRegistry
}

// ObserveListingCreated increments the listing creation counter.
func (m *MarketMetrics) ObserveListingCreated() {
	if m == nil {
		return
	}
	m.listingsCreated.Inc()
}

// ObserveSettlement increments the settlement counter.
func (m *MarketMetrics) ObserveSettlement() {
	if m == nil {
		return
	}
	m.settlements.Inc()
}

// ObserveClaimRejected records a rejected claim with the failure reason.
func (m *MarketMetrics) ObserveClaimRejected(reason string) {
	if m == nil {
		return
	}
	m.claimsRejected.WithLabelValues(reason).Inc()
}

// ObserveAuthorizationUsed increments the consumed authorization counter.
func (m *MarketMetrics) ObserveAuthorizationUsed() {
	if m == nil {
		return
	}
	m.authorizationsUsed.Inc()
}

// ObserveAuthorizationRejected records a rejected authorization with the
// failure reason.
func (m *MarketMetrics) ObserveAuthorizationRejected(reason string) {
	if m == nil {
		return
	}
	m.authRejected.WithLabelValues(reason).Inc()
}
