package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TenantsCreated  prometheus.Counter
	TenantsDeleted  prometheus.Counter
	ClientsCreated  prometheus.Counter
	ClientsDeleted  prometheus.Counter
	SecretRotations prometheus.Counter
}

// New registers tenant metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		TenantsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		TenantsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_tenants_deleted_total",
			Help: "Total number of tenants deleted",
		}),
		ClientsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_clients_created_total",
			Help: "Total number of clients registered",
		}),
		ClientsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_clients_deleted_total",
			Help: "Total number of clients deleted",
		}),
		SecretRotations: factory.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_client_secret_rotations_total",
			Help: "Total number of client secret rotations",
		}),
	}
}

func (m *Metrics) IncrementTenantCreated() {
	if m != nil {
		m.TenantsCreated.Inc()
	}
}

func (m *Metrics) IncrementTenantDeleted() {
	if m != nil {
		m.TenantsDeleted.Inc()
	}
}

func (m *Metrics) IncrementClientCreated() {
	if m != nil {
		m.ClientsCreated.Inc()
	}
}

func (m *Metrics) IncrementClientDeleted() {
	if m != nil {
		m.ClientsDeleted.Inc()
	}
}

func (m *Metrics) IncrementSecretRotated() {
	if m != nil {
		m.SecretRotations.Inc()
	}
}
