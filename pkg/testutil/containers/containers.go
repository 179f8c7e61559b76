//go:build integration

// Package containers starts the audit trail's Postgres and Redpanda
// dependencies once per test binary and shares them between suites.
package containers

import (
	"context"
	"sync"
	"testing"
)

// fixture starts a container on first use and hands the same instance to
// every later caller.
type fixture[T any] struct {
	mu      sync.Mutex
	value   T
	started bool
}

func (f *fixture[T]) get(t *testing.T, start func(*testing.T) T) T {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		f.value = start(t)
		f.started = true
	}
	return f.value
}

// Manager owns the shared containers and the export topics created on them.
type Manager struct {
	postgres fixture[*PostgresContainer]
	kafka    fixture[*KafkaContainer]

	mu     sync.Mutex
	topics map[string]bool
}

var manager = &Manager{topics: make(map[string]bool)}

func GetManager() *Manager {
	return manager
}

// GetPostgres returns the migrated audit trail database.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	return m.postgres.get(t, NewPostgresContainer)
}

// GetKafka returns the broker the outbox worker exports to.
func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	return m.kafka.get(t, NewKafkaContainer)
}

// ExportStack returns both containers with topic created, for suites that
// follow a mutation from its audit record to the exported message.
func (m *Manager) ExportStack(t *testing.T, topic string) (*PostgresContainer, *KafkaContainer) {
	t.Helper()
	pg := m.GetPostgres(t)
	kafka := m.GetKafka(t)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.topics[topic] {
		if err := kafka.CreateTopic(context.Background(), topic, 1, 1); err != nil {
			t.Fatalf("failed to create export topic %q: %v", topic, err)
		}
		m.topics[topic] = true
	}
	return pg, kafka
}
