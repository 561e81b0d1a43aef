package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"familypoints/internal/models"
	"familypoints/internal/security"
)

// Router bundles the handlers and middleware the API is served with
type Router struct {
	Middleware   *Middleware
	LoginLimiter *security.RateLimiter
	Health       Pinger

	Auth     *AuthHandler
	Accounts *AccountHandler
	Families *FamilyHandler
	History  *HistoryHandler
	Homework *HomeworkHandler
	Rewards  *RewardHandler
}

// NewRouter builds the HTTP handler for the JSON API
func NewRouter(rt Router) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging)
	r.Use(middleware.Recoverer)

	m := rt.Middleware
	admin := m.RequireRoles(models.RoleAdmin)
	parent := m.RequireRoles(models.RoleParent)
	child := m.RequireRoles(models.RoleChild)
	member := m.RequireRoles(models.RoleChild, models.RoleParent)
	anyone := m.RequireRoles()

	r.Get("/healthz", Health(rt.Health))

	r.Route("/api", func(r chi.Router) {
		r.With(RateLimit(rt.LoginLimiter)).Post("/login", rt.Auth.Login)

		r.With(anyone).Get("/subject", Subjects)

		r.Route("/account", func(r chi.Router) {
			r.With(anyone).Get("/me", rt.Accounts.Me)
			r.With(anyone).Put("/password", rt.Accounts.ChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/", rt.Accounts.List)
				r.Post("/", rt.Accounts.Create)
				r.Put("/{id}", rt.Accounts.Update)
				r.Delete("/{id}", rt.Accounts.Delete)
				r.Post("/{id}/reconcile", rt.Accounts.Reconcile)
			})
		})

		r.Route("/family", func(r chi.Router) {
			r.With(admin).Get("/", rt.Families.List)
			r.With(admin).Post("/", rt.Families.Create)
			r.With(member).Get("/deadline", rt.Families.Deadline)

			r.Group(func(r chi.Router) {
				r.Use(parent)
				r.Put("/name", rt.Families.Rename)
				r.Put("/deadline", rt.Families.UpdateDeadline)
				r.Get("/children", rt.Families.Children)
				r.Post("/children", rt.Families.CreateChild)
				r.Get("/children/{id}", rt.Families.ChildDetail)
				r.Post("/children/{id}/password", rt.Families.RegenerateChildPassword)
			})
		})

		r.Route("/history", func(r chi.Router) {
			r.With(member).Get("/", rt.History.Own)
			r.With(parent).Get("/parent", rt.History.ForChild)
			r.With(child).Get("/summary", rt.History.Summary)
		})

		r.Route("/homework", func(r chi.Router) {
			r.With(member).Get("/", rt.Homework.List)
			r.With(member).Put("/{id}/complete", rt.Homework.Complete)
			r.With(member).Post("/pomodoro", rt.Homework.Pomodoro)

			r.Group(func(r chi.Router) {
				r.Use(parent)
				r.Post("/", rt.Homework.Create)
				r.Put("/{id}", rt.Homework.Update)
				r.Delete("/{id}", rt.Homework.Delete)
				r.Get("/statistics", rt.Homework.Statistics)
				r.Get("/analysis", rt.Homework.Analysis)
			})
		})

		r.Route("/reward", func(r chi.Router) {
			r.With(member).Get("/", rt.Rewards.List)
			r.With(member).Put("/redeem", rt.Rewards.Redeem)
			r.With(member).Get("/history", rt.Rewards.History)

			r.Group(func(r chi.Router) {
				r.Use(parent)
				r.Post("/", rt.Rewards.Create)
				r.Put("/history", rt.Rewards.Decide)
				r.Get("/history/pending", rt.Rewards.Pending)
				r.Put("/{id}", rt.Rewards.Update)
				r.Delete("/{id}", rt.Rewards.Delete)
			})
		})
	})

	return r
}
