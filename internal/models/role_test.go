package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRoleSpellings(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
	}{
		{"ROLE_ADMIN", RoleAdmin},
		{"admin", RoleAdmin},
		{"Admin", RoleAdmin},
		{" role_waiter ", RoleWaiter},
		{"CHEF", RoleChef},
		{"customer", RoleCustomer},
		{"", RoleUnknown},
		{"manager", RoleUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRole(tt.raw))
		})
	}
}

func TestIsStaff(t *testing.T) {
	assert.True(t, RoleAdmin.IsStaff())
	assert.True(t, RoleChef.IsStaff())
	assert.True(t, RoleWaiter.IsStaff())
	assert.False(t, RoleCustomer.IsStaff())
	assert.False(t, RoleUnknown.IsStaff())
}

func TestDashboardPath(t *testing.T) {
	assert.Equal(t, "/dashboard/waiter", RoleWaiter.DashboardPath())
	assert.Equal(t, "/", RoleUnknown.DashboardPath())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Chef", RoleChef.DisplayName())
	assert.Equal(t, "User", RoleUnknown.DisplayName())
}

func TestHasExactTime(t *testing.T) {
	withTimestamp := &Booking{TimeSlot: "2025-06-01T18:00:00Z"}
	assert.True(t, withTimestamp.HasExactTime())

	legacy := &Booking{BookingDate: "2025-06-01", BookingTimeSlot: SlotEvening}
	assert.False(t, legacy.HasExactTime())
}
