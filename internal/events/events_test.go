package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/clinic-service/internal/domain"
)

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string

	d.Subscribe(EventPatientCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventPatientCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventPatientAssigned, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), New(EventPatientCreated, 1, domain.Caller{Email: "s@clinic.io", Role: domain.RoleSales}, nil))
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestNewStampsEvent(t *testing.T) {
	caller := domain.Caller{Email: "doc@clinic.io", Role: domain.RoleDoctor}
	a := New(EventConsultationScheduled, 7, caller, ConsultationScheduledPayload{PatientID: 3})
	b := New(EventConsultationScheduled, 7, caller, nil)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, int64(7), a.EntityID)
	assert.Equal(t, "doc@clinic.io", a.Actor.Email)
	assert.False(t, a.Timestamp.IsZero())
}

func TestRedisPublisherWithoutClientIsNoop(t *testing.T) {
	var p *RedisPublisher
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, NewRedisPublisher(nil, "clinic.events").Publish(context.Background(), Event{}))
}
