package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{StatusPending, StatusConfirmed, StatusRejected, StatusReady, StatusCompleted, StatusDelivered} {
		assert.True(t, s.Valid(), "expected %q to be valid", s)
	}
	for _, s := range []OrderStatus{"", "shipped", "PENDING", "done"} {
		assert.False(t, s.Valid(), "expected %q to be invalid", s)
	}
}

func TestOrderStatusActive(t *testing.T) {
	active := []OrderStatus{StatusPending, StatusConfirmed, StatusReady}
	for _, s := range active {
		assert.True(t, s.Active(), "expected %q to be active", s)
	}
	terminal := []OrderStatus{StatusRejected, StatusCompleted, StatusDelivered}
	for _, s := range terminal {
		assert.False(t, s.Active(), "expected %q to not be active", s)
	}
}

func TestOrderStatusNormalize(t *testing.T) {
	assert.Equal(t, StatusCompleted, StatusDelivered.Normalize())
	assert.Equal(t, StatusPending, StatusPending.Normalize())
	assert.Equal(t, StatusConfirmed, StatusConfirmed.Normalize())
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RolePatient, RoleDoctor, RolePharmacy} {
		assert.True(t, r.Valid())
	}
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}
