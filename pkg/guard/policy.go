package guard

import (
	"strings"

	"github.com/recicla-upao/validation-core/pkg/auth"
)

// Route is an application path.
type Route string

// Known routes.
const (
	RouteLogin   Route = "/login"
	RouteSignup  Route = "/signup"
	RouteRoot    Route = "/"
	RouteWelcome Route = "/welcome"

	RouteAdminRewards       Route = "/admin/ver-recompensa"
	RouteParticipantHistory Route = "/user/ver-historial"
	RouteParticipantStats   Route = "/user/ver-estadistica"
	RouteNGOValidation      Route = "/ong/validacion-ong"
	RouteCenterRegister     Route = "/centro/registrar-actividad"
)

// publicPaths are reachable without a session.
var publicPaths = []Route{
	RouteLogin,
	RouteSignup,
	RouteRoot,
	RouteWelcome,
}

// sections maps a path prefix to the only role allowed under it.
var sections = []struct {
	prefix string
	role   auth.Role
}{
	{"/admin/", auth.RoleAdministrator},
	{"/user/", auth.RoleParticipant},
	{"/ong/", auth.RoleNGO},
	{"/centro/", auth.RoleCollectionCenter},
}

var homes = map[auth.Role]Route{
	auth.RoleAdministrator:    RouteAdminRewards,
	auth.RoleParticipant:      RouteParticipantHistory,
	auth.RoleNGO:              RouteNGOValidation,
	auth.RoleCollectionCenter: RouteCenterRegister,
}

// stripQuery drops any ?query or #fragment from path.
func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}

// IsPublic reports whether path is reachable without a session.
func IsPublic(path string) bool {
	p := Route(stripQuery(path))
	for _, pub := range publicPaths {
		if p == pub {
			return true
		}
	}
	return false
}

// RequiredRole returns the role that owns path. ok is false for public and
// unrecognised paths.
func RequiredRole(path string) (role auth.Role, ok bool) {
	p := stripQuery(path)
	for _, s := range sections {
		if strings.HasPrefix(p, s.prefix) {
			return s.role, true
		}
	}
	return auth.RoleUnknown, false
}

// Allowed is the routing policy. It is total: every (session, role, path)
// combination yields allow or deny. Public paths are always allowed,
// role sections require an active session holding exactly that role, and
// anything else is denied.
func Allowed(active bool, role auth.Role, path string) bool {
	if IsPublic(path) {
		return true
	}
	required, ok := RequiredRole(path)
	if !ok {
		return false
	}
	return active && role.Known() && role == required
}

// HomeFor returns the landing route after login for role, or RouteRoot for
// an unknown role.
func HomeFor(role auth.Role) Route {
	if r, ok := homes[role]; ok {
		return r
	}
	return RouteRoot
}

// ShowPublicChrome reports whether the public navigation bar belongs on
// path: only on public paths and only while logged out.
func ShowPublicChrome(path string, active bool) bool {
	return !active && IsPublic(path)
}
