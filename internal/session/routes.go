package session

import (
	"strings"

	"github.com/wanterio/wanterio-backend/pkg/enums"
)

// HomePath is where a signed-out user lands.
const HomePath = "/"

const authPathPrefix = "/auth/"

var landingRoutes = map[enums.Role]string{
	enums.RolePatient:    "/dashboard/patient",
	enums.RoleDoctor:     "/dashboard/doctor",
	enums.RoleClinic:     "/dashboard/clinic",
	enums.RoleDriver:     "/dashboard/driver",
	enums.RoleAdmin:      "/dashboard/admin",
	enums.RoleSuperAdmin: "/dashboard/admin",
	enums.RoleModerator:  "/dashboard/moderator",
}

// PrimaryRole picks the role used for routing: super_admin, then admin, then
// moderator, otherwise the first role granted. It returns "" for no roles.
func PrimaryRole(roles []enums.Role) enums.Role {
	for _, preferred := range []enums.Role{enums.RoleSuperAdmin, enums.RoleAdmin, enums.RoleModerator} {
		for _, role := range roles {
			if role == preferred {
				return preferred
			}
		}
	}
	if len(roles) == 0 {
		return ""
	}
	return roles[0]
}

// LandingRoute maps a primary role to its dashboard. Unknown roles land on the
// patient dashboard.
func LandingRoute(role enums.Role) string {
	if route, ok := landingRoutes[role]; ok {
		return route
	}
	return landingRoutes[enums.RolePatient]
}

// ShouldRedirect reports whether a completed bootstrap may navigate away from
// path. Deep links are left alone.
func ShouldRedirect(path string) bool {
	return path == HomePath || strings.HasPrefix(path, authPathPrefix)
}
