package httpserver

import (
	"net/http"

	"tradelab/internal/admin"
	"tradelab/internal/ai"
	"tradelab/internal/auth"
	"tradelab/internal/httputil"
	"tradelab/internal/marketdata"
	"tradelab/internal/paper"
	"tradelab/internal/refdata"
	"tradelab/internal/trades"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AuthHandler    *auth.Handler
	PaperHandler   *paper.Handler
	TradesHandler  *trades.Handler
	RefdataHandler *refdata.Handler
	MarketHandler  *marketdata.Handler
	AIHandler      *ai.Handler
	AdminHandler   *admin.Handler
	AuthService    *auth.Service
	WSHandler      http.Handler
}

// userHandler adapts handlers that take an authenticated user ID.
type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

func withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		h(w, r, userID)
	}
}

func withUserParam(param string, h func(w http.ResponseWriter, r *http.Request, userID, id string)) http.HandlerFunc {
	return withUser(func(w http.ResponseWriter, r *http.Request, userID string) {
		h(w, r, userID, chi.URLParam(r, param))
	})
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS for the browser client
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/ws", d.WSHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.AuthHandler.Register)
			r.Post("/login", d.AuthHandler.Login)
			r.Post("/logout", d.AuthHandler.Logout)
			r.Group(func(r chi.Router) {
				r.Use(WithAuth(d.AuthService))
				r.Get("/me", withUser(d.AuthHandler.Me))
				r.Post("/send-verification", withUser(d.AuthHandler.SendVerification))
				r.Post("/verify-code", withUser(d.AuthHandler.VerifyCode))
				r.Get("/verification-status", withUser(d.AuthHandler.VerificationStatus))
			})
		})

		r.Get("/trading-pairs", d.RefdataHandler.ListPairs)
		r.Get("/strategy-types", d.RefdataHandler.ListStrategyTypes)
		r.Get("/quotes", d.MarketHandler.GetQuotes)

		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))

			r.Get("/paper-trading-account", withUser(d.PaperHandler.Account))
			r.Post("/positions", withUser(d.PaperHandler.Open))
			r.Get("/positions", withUser(d.PaperHandler.List))
			r.Put("/positions/{id}/close", withUserParam("id", d.PaperHandler.Close))

			r.Post("/trades", withUser(d.TradesHandler.Create))
			r.Get("/trades", withUser(d.TradesHandler.List))
			r.Get("/trades/{id}", withUserParam("id", d.TradesHandler.Get))
			r.Put("/trades/{id}", withUserParam("id", d.TradesHandler.Update))
			r.Delete("/trades/{id}", withUserParam("id", d.TradesHandler.Delete))

			r.Post("/ai/commentary", withUser(d.AIHandler.Commentary))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", d.AdminHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(d.AdminHandler.Middleware)
				r.Get("/users", d.AdminHandler.ListUsers)
				r.Get("/risk", d.AdminHandler.GetRiskConfig)
				r.Put("/risk", d.AdminHandler.UpdateRiskConfig)

				r.Post("/trading-pairs", d.RefdataHandler.UpsertPair)
				r.Put("/trading-pairs", d.RefdataHandler.UpsertPair)
				r.Delete("/trading-pairs/{symbol}", func(w http.ResponseWriter, r *http.Request) {
					d.RefdataHandler.DeletePair(w, r, chi.URLParam(r, "symbol"))
				})
				r.Post("/strategy-types", d.RefdataHandler.CreateStrategyType)
				r.Delete("/strategy-types/{id}", func(w http.ResponseWriter, r *http.Request) {
					d.RefdataHandler.DeleteStrategyType(w, r, chi.URLParam(r, "id"))
				})
			})
		})
	})

	return r
}
