package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wanterio/wanterio-backend/api/controllers"
	"github.com/wanterio/wanterio-backend/api/middleware"
	"github.com/wanterio/wanterio-backend/pkg/config"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

// Deps carries everything the router mounts. Checks maps readiness probe
// names to their pinger; nil pingers are skipped.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Gatherer  prometheus.Gatherer
	RateStore middleware.RateLimitStore
	Checks    map[string]controllers.Pinger
	Demo      bool

	Session  controllers.SessionService
	Cart     controllers.CartStore
	Items    controllers.ItemResolver
	Catalog  controllers.CatalogService
	Checkout controllers.CheckoutService
	Care     controllers.CareService
	Admin    controllers.AdminService
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	signInPolicy := middleware.NewAuthRateLimitPolicy("sign_in", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.EmailLimit)
	signUpPolicy := middleware.NewAuthRateLimitPolicy("sign_up", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.EmailLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Demo, deps.Checks))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	requireSession := middleware.RequireSession(deps.Session, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", controllers.SessionCurrent(deps.Session))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(signInPolicy, deps.RateStore, logg)).Post("/sign-in", controllers.AuthSignIn(deps.Session, logg))
			r.With(middleware.AuthRateLimit(signUpPolicy, deps.RateStore, logg)).Post("/sign-up", controllers.AuthSignUp(deps.Session, logg))
			r.Post("/sign-out", controllers.AuthSignOut(deps.Session, logg))
		})

		r.Get("/medicines", controllers.MedicinesList(deps.Catalog, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart))
			r.Delete("/", controllers.CartClear(deps.Cart))
			r.Post("/items", controllers.CartAddItem(deps.Cart, deps.Items, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart))
			r.Post("/validate", controllers.CartValidate(deps.Cart))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/checkout/quote", controllers.CheckoutQuote(deps.Checkout))
			r.Post("/checkout", controllers.CheckoutPlaceOrder(deps.Checkout, logg))

			r.Route("/appointments", func(r chi.Router) {
				r.Get("/", controllers.AppointmentsList(deps.Care, logg))
				r.Post("/", controllers.AppointmentsCreate(deps.Care, logg))
				r.Patch("/{appointmentId}/status", controllers.AppointmentsUpdateStatus(deps.Care, logg))
			})
			r.Route("/ambulance-requests", func(r chi.Router) {
				r.Get("/", controllers.AmbulanceList(deps.Care, logg))
				r.Post("/", controllers.AmbulanceCreate(deps.Care, logg))
				r.Patch("/{requestId}/status", controllers.AmbulanceUpdateStatus(deps.Care, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(signUpPolicy, deps.RateStore, logg)).Post("/setup", controllers.AdminSetup(deps.Admin, deps.Session, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireSession, middleware.RequireRoles(deps.Session, logg, enums.RoleAdmin, enums.RoleSuperAdmin))

			r.Get("/stats", controllers.AdminStats(deps.Admin, logg))
			r.Get("/users", controllers.AdminUsersList(deps.Admin, logg))
			r.Post("/users/{userId}/roles", controllers.AdminAssignRole(deps.Admin, logg))
			r.Delete("/users/{userId}/roles/{role}", controllers.AdminRemoveRole(deps.Admin, logg))
			r.Get("/orders", controllers.AdminOrdersList(deps.Admin, logg))
			r.Patch("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Admin, logg))
		})
	})

	return r
}
