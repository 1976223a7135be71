package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/circlemart/circlemart-backend/api/controllers"
	"github.com/circlemart/circlemart-backend/api/middleware"
	"github.com/circlemart/circlemart-backend/internal/auth"
	"github.com/circlemart/circlemart-backend/internal/blogs"
	"github.com/circlemart/circlemart-backend/internal/cart"
	"github.com/circlemart/circlemart-backend/internal/categories"
	"github.com/circlemart/circlemart-backend/internal/groups"
	"github.com/circlemart/circlemart-backend/internal/products"
	"github.com/circlemart/circlemart-backend/internal/services"
	"github.com/circlemart/circlemart-backend/internal/users"
	"github.com/circlemart/circlemart-backend/pkg/auth/session"
	"github.com/circlemart/circlemart-backend/pkg/config"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/metrics"
	pkgredis "github.com/circlemart/circlemart-backend/pkg/redis"
)

// Dependencies is everything the HTTP surface needs. Routes backed by a nil
// service fail with an internal error.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	Sessions         session.AccessSessionChecker
	IdempotencyStore pkgredis.IdempotencyStore
	RateLimiter      pkgredis.RateLimiter
	HTTPMetrics      *metrics.HTTPMetrics
	Gatherer         prometheus.Gatherer
	Readiness        map[string]controllers.Pinger

	Auth       auth.Service
	Users      users.Service
	Categories categories.Service
	Services   services.Service
	Groups     groups.Service
	Products   products.Service
	Blogs      blogs.Service
	Cart       cart.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	requireAuth := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg)
	requireAdmin := middleware.RequireRole(logg, enums.UserRoleAdmin)
	idempotent := middleware.Idempotency(deps.IdempotencyStore, cfg.Cart.IdempotencyTTL, logg)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, deps.Readiness, logg))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, deps.RateLimiter, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
				r.Get("/me", controllers.AuthMe(deps.Auth, logg))
				r.Patch("/me", controllers.ProfileUpdate(deps.Users, logg))
				r.Post("/me/password", controllers.AuthChangePassword(deps.Auth, logg))
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.With(optionalAuth).Get("/", controllers.CategoryList(deps.Categories, logg))
			r.Get("/slug/{slug}", controllers.CategoryGetBySlug(deps.Categories, logg))
			r.Get("/{categoryID}", controllers.CategoryGet(deps.Categories, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Post("/", controllers.CategoryCreate(deps.Categories, cfg.Media, logg))
				r.Get("/stats", controllers.CategoryStats(deps.Categories, logg))
				r.Put("/{categoryID}", controllers.CategoryUpdate(deps.Categories, cfg.Media, logg))
				r.Delete("/{categoryID}", controllers.CategoryDelete(deps.Categories, logg))
				r.Patch("/{categoryID}/status", controllers.CategorySetStatus(deps.Categories, logg))
			})
		})

		r.Route("/services", func(r chi.Router) {
			r.With(optionalAuth).Get("/", controllers.ServiceList(deps.Services, logg))
			r.Get("/slug/{slug}", controllers.ServiceGetBySlug(deps.Services, logg))
			r.Get("/{serviceID}", controllers.ServiceGet(deps.Services, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Post("/", controllers.ServiceCreate(deps.Services, cfg.Media, logg))
				r.Get("/stats", controllers.ServiceStats(deps.Services, logg))
				r.Put("/{serviceID}", controllers.ServiceUpdate(deps.Services, cfg.Media, logg))
				r.Delete("/{serviceID}", controllers.ServiceDelete(deps.Services, logg))
				r.Patch("/{serviceID}/status", controllers.ServiceSetStatus(deps.Services, logg))
			})
		})

		r.Route("/groups", func(r chi.Router) {
			r.With(optionalAuth).Get("/", controllers.GroupList(deps.Groups, logg))
			r.Get("/slug/{slug}", controllers.GroupGetBySlug(deps.Groups, logg))
			r.Get("/{groupID}", controllers.GroupGet(deps.Groups, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", controllers.GroupCreate(deps.Groups, cfg.Media, logg))
				r.Put("/{groupID}", controllers.GroupUpdate(deps.Groups, cfg.Media, logg))
				r.Delete("/{groupID}", controllers.GroupDelete(deps.Groups, logg))
				r.Post("/{groupID}/join", controllers.GroupJoin(deps.Groups, logg))
				r.Post("/{groupID}/leave", controllers.GroupLeave(deps.Groups, logg))
				r.Get("/{groupID}/members", controllers.GroupMembers(deps.Groups, logg))
				r.Post("/{groupID}/members/{userID}/approve", controllers.GroupDecideRequest(deps.Groups, true, logg))
				r.Post("/{groupID}/members/{userID}/reject", controllers.GroupDecideRequest(deps.Groups, false, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Get("/stats", controllers.GroupStats(deps.Groups, logg))
				r.Patch("/{groupID}/status", controllers.GroupSetStatus(deps.Groups, logg))
				r.Post("/{groupID}/approve", controllers.GroupApprove(deps.Groups, logg))
				r.Post("/{groupID}/reject", controllers.GroupReject(deps.Groups, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.With(optionalAuth).Get("/", controllers.ProductList(deps.Products, logg))
			r.Get("/slug/{slug}", controllers.ProductGetBySlug(deps.Products, logg))
			r.Get("/{productID}", controllers.ProductGet(deps.Products, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", controllers.ProductCreate(deps.Products, cfg.Media, logg))
				r.Patch("/{productID}", controllers.ProductUpdate(deps.Products, logg))
				r.Delete("/{productID}", controllers.ProductDelete(deps.Products, logg))
				r.Patch("/{productID}/status", controllers.ProductSetStatus(deps.Products, logg))
				r.Post("/{productID}/images", controllers.ProductAddImages(deps.Products, cfg.Media, logg))
				r.Put("/{productID}/images/order", controllers.ProductReorderImages(deps.Products, logg))
				r.Post("/{productID}/images/{imageID}/primary", controllers.ProductSetPrimaryImage(deps.Products, logg))
				r.Delete("/{productID}/images/{imageID}", controllers.ProductDeleteImage(deps.Products, logg))
			})

			r.With(requireAuth, requireAdmin).Get("/stats", controllers.ProductStats(deps.Products, logg))
		})

		r.Route("/blogs", func(r chi.Router) {
			r.With(optionalAuth).Get("/", controllers.BlogList(deps.Blogs, logg))
			r.Get("/slug/{slug}", controllers.BlogView(deps.Blogs, logg))
			r.Post("/{blogID}/like", controllers.BlogLike(deps.Blogs, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Post("/", controllers.BlogCreate(deps.Blogs, cfg.Media, logg))
				r.Get("/{blogID}", controllers.BlogGet(deps.Blogs, logg))
				r.Put("/{blogID}", controllers.BlogUpdate(deps.Blogs, cfg.Media, logg))
				r.Delete("/{blogID}", controllers.BlogDelete(deps.Blogs, logg))
				r.Patch("/{blogID}/status", controllers.BlogSetStatus(deps.Blogs, logg))
				r.Post("/{blogID}/gallery", controllers.BlogAddGallery(deps.Blogs, cfg.Media, logg))
				r.Delete("/{blogID}/gallery/{imageID}", controllers.BlogDeleteGalleryImage(deps.Blogs, logg))
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Put("/items/{productID}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{productID}", controllers.CartRemoveItem(deps.Cart, logg))
			r.Get("/history", controllers.CartHistory(deps.Cart, logg))
			r.With(idempotent).Post("/submit", controllers.CartSubmit(deps.Cart, logg))
			r.With(idempotent).Post("/{cartID}/cancel", controllers.CartCancel(deps.Cart, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Route("/carts", func(r chi.Router) {
				r.Get("/", controllers.AdminCartList(deps.Cart, logg))
				r.Get("/stats", controllers.AdminCartStats(deps.Cart, logg))
				r.Get("/{cartID}", controllers.AdminCartGet(deps.Cart, logg))
				r.With(idempotent).Post("/{cartID}/approve", controllers.AdminCartDecide(deps.Cart, true, logg))
				r.With(idempotent).Post("/{cartID}/reject", controllers.AdminCartDecide(deps.Cart, false, logg))
			})
			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminUserList(deps.Users, logg))
				r.Patch("/{userID}/role", controllers.AdminUserSetRole(deps.Users, logg))
				r.Patch("/{userID}/status", controllers.AdminUserSetStatus(deps.Users, logg))
			})
		})
	})

	return r
}
