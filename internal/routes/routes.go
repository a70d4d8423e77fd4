package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"RIDESHARE_BACK-END/internal/config"
	"RIDESHARE_BACK-END/internal/handlers"
	"RIDESHARE_BACK-END/internal/middleware"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Google        *handlers.GoogleAuthHandler
	Health        *handlers.HealthHandler
	Users         *handlers.UsersHandler
	Reviews       *handlers.ReviewsHandler
	Trips         *handlers.TripsHandler
	Notifications *handlers.NotificationsHandler
	Messages      *handlers.MessagesHandler
	Conversations *handlers.ConversationsHandler
	Payments      *handlers.PaymentsHandler
	Socket        *handlers.SocketHandler
}

// SetupRoutes configures all application routes
func SetupRoutes(h Handlers, jwtCfg *config.JWTConfig) *mux.Router {
	r := mux.NewRouter()
	auth := func(fn http.HandlerFunc) http.HandlerFunc { return middleware.AuthMiddleware(fn, jwtCfg) }

	// Health check routes
	r.HandleFunc("/healthz", h.Health.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.Health.LivenessCheck).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.Health.ReadinessCheck).Methods(http.MethodGet)

	// Authentication routes
	r.HandleFunc("/api/auth/register", h.Auth.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", h.Auth.Login).Methods(http.MethodPost)
	if h.Google != nil {
		r.HandleFunc("/api/auth/google/login", h.Google.GoogleLogin).Methods(http.MethodGet)
		r.HandleFunc("/api/auth/google/callback", h.Google.GoogleCallback).Methods(http.MethodGet)
	}

	// Users; /me must be registered before /{id}
	r.HandleFunc("/api/users/me", auth(h.Auth.Me)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/me", auth(h.Users.UpdateMe)).Methods(http.MethodPut)
	r.HandleFunc("/api/users/me", auth(h.Users.DeleteMe)).Methods(http.MethodDelete)
	r.HandleFunc("/api/users/me/trips", auth(h.Trips.MyTrips)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}", h.Users.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}/reviews", h.Reviews.ListReviews).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}/reviews", auth(h.Reviews.CreateReview)).Methods(http.MethodPost)
	r.HandleFunc("/api/users/{id}/reviews/{reviewId}", auth(h.Reviews.UpdateReview)).Methods(http.MethodPut)
	r.HandleFunc("/api/users/{id}/reviews/{reviewId}", auth(h.Reviews.DeleteReview)).Methods(http.MethodDelete)

	// Trip ledger
	r.HandleFunc("/api/trips", h.Trips.ListTrips).Methods(http.MethodGet)
	r.HandleFunc("/api/trips", auth(h.Trips.CreateTrip)).Methods(http.MethodPost)
	r.HandleFunc("/api/trips/{id}", h.Trips.TripDetail).Methods(http.MethodGet)
	r.HandleFunc("/api/trips/{id}", auth(h.Trips.DeleteTrip)).Methods(http.MethodDelete)
	r.HandleFunc("/api/trips/{id}/join", auth(h.Trips.JoinTrip)).Methods(http.MethodPost)
	r.HandleFunc("/api/trips/{id}/refund", auth(h.Trips.RefundTicket)).Methods(http.MethodPut)
	r.HandleFunc("/api/trips/{id}/cancel", auth(h.Trips.CancelTrip)).Methods(http.MethodPut)

	// Notifications
	r.HandleFunc("/api/notifications", auth(h.Notifications.ListNotifications)).Methods(http.MethodGet)
	r.HandleFunc("/api/notifications/read-all", auth(h.Notifications.MarkAllRead)).Methods(http.MethodPost)
	r.HandleFunc("/api/notifications/{id}/read", auth(h.Notifications.MarkRead)).Methods(http.MethodPost)

	// Conversations; /filtered must be registered before /{id}
	r.HandleFunc("/api/conversations", auth(h.Conversations.ListConversations)).Methods(http.MethodGet)
	r.HandleFunc("/api/conversations", auth(h.Conversations.CreateConversation)).Methods(http.MethodPost)
	r.HandleFunc("/api/conversations/filtered", auth(h.Conversations.ListActiveConversations)).Methods(http.MethodGet)
	r.HandleFunc("/api/conversations/{id}", auth(h.Conversations.GetConversation)).Methods(http.MethodGet)
	r.HandleFunc("/api/conversations/{id}", auth(h.Conversations.LeaveConversation)).Methods(http.MethodDelete)
	r.HandleFunc("/api/conversations/{id}/retrieve", auth(h.Conversations.RetrieveConversation)).Methods(http.MethodPut)

	// Chat history
	r.HandleFunc("/api/messages", auth(h.Messages.ListMessages)).Methods(http.MethodGet)
	r.HandleFunc("/api/messages", auth(h.Messages.CreateMessage)).Methods(http.MethodPost)
	r.HandleFunc("/api/messages/{id}", auth(h.Messages.EditMessage)).Methods(http.MethodPut)
	r.HandleFunc("/api/messages/{id}", auth(h.Messages.DeleteMessage)).Methods(http.MethodDelete)

	// Payments
	r.HandleFunc("/api/payments/charges", auth(h.Payments.CreateCharge)).Methods(http.MethodPost)

	// Presence socket authenticates during the handshake itself
	r.HandleFunc("/socket", h.Socket.ServeSocket)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// Root route
	r.HandleFunc("/", rootHandler)
	return r
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Rideshare backend is running."))
}
