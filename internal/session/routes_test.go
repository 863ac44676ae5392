package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wanterio/wanterio-backend/pkg/enums"
)

func TestPrimaryRole(t *testing.T) {
	cases := []struct {
		name  string
		roles []enums.Role
		want  enums.Role
	}{
		{"none", nil, ""},
		{"first wins without privileged roles", []enums.Role{enums.RoleDoctor, enums.RolePatient}, enums.RoleDoctor},
		{"moderator beats first", []enums.Role{enums.RolePatient, enums.RoleModerator}, enums.RoleModerator},
		{"admin beats moderator", []enums.Role{enums.RoleModerator, enums.RoleAdmin}, enums.RoleAdmin},
		{"super admin beats all", []enums.Role{enums.RoleAdmin, enums.RoleDriver, enums.RoleSuperAdmin}, enums.RoleSuperAdmin},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PrimaryRole(tc.roles))
		})
	}
}

func TestLandingRoute(t *testing.T) {
	assert.Equal(t, "/dashboard/patient", LandingRoute(enums.RolePatient))
	assert.Equal(t, "/dashboard/doctor", LandingRoute(enums.RoleDoctor))
	assert.Equal(t, "/dashboard/clinic", LandingRoute(enums.RoleClinic))
	assert.Equal(t, "/dashboard/driver", LandingRoute(enums.RoleDriver))
	assert.Equal(t, "/dashboard/admin", LandingRoute(enums.RoleAdmin))
	assert.Equal(t, "/dashboard/admin", LandingRoute(enums.RoleSuperAdmin))
	assert.Equal(t, "/dashboard/moderator", LandingRoute(enums.RoleModerator))
	assert.Equal(t, "/dashboard/patient", LandingRoute(enums.Role("pharmacist")))
	assert.Equal(t, "/dashboard/patient", LandingRoute(""))
}

func TestShouldRedirect(t *testing.T) {
	assert.True(t, ShouldRedirect("/"))
	assert.True(t, ShouldRedirect("/auth/sign-in"))
	assert.True(t, ShouldRedirect("/auth/sign-up"))
	assert.False(t, ShouldRedirect("/auth"))
	assert.False(t, ShouldRedirect("/dashboard/patient/orders"))
	assert.False(t, ShouldRedirect(""))
}
