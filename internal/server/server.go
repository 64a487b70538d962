package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/FonTain1991/aidkit/internal/handler"
	"github.com/FonTain1991/aidkit/internal/middleware"
	"github.com/FonTain1991/aidkit/internal/notify"
	"github.com/FonTain1991/aidkit/internal/schedule"
	"github.com/FonTain1991/aidkit/internal/store"
	ws "github.com/FonTain1991/aidkit/internal/websocket"
)

// Config carries the optional push credentials. Without VAPID keys the
// server still runs; notifications stay in the pending list but are never
// pushed to devices.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	kitH          *handler.KitHandler
	medicineH     *handler.MedicineHandler
	reminderH     *handler.ReminderHandler
	familyMemberH *handler.FamilyMemberHandler
	pushH         *handler.PushHandler
	dispatcher    *notify.Dispatcher
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	kitStore := store.NewKitStore(db)
	medicineStore := store.NewMedicineStore(db)
	reminderStore := store.NewReminderStore(db)
	familyMemberStore := store.NewFamilyMemberStore(db)
	notificationStore := store.NewNotificationStore(db)
	intakeStore := store.NewIntakeStore(db)
	pushStore := store.NewPushStore(db)

	center := notify.NewCenter(notificationStore)
	svc := schedule.NewService(center, reminderStore, medicineStore, familyMemberStore, intakeStore, logger.With("component", "schedule"))

	var sender *notify.Sender
	var dispatcher *notify.Dispatcher
	var pushH *handler.PushHandler
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		sender = notify.NewSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
		dispatcher = notify.NewDispatcher(sender, notificationStore, pushStore, hub, logger.With("component", "dispatch"))
		pushH = handler.NewPushHandler(pushStore, sender, logger.With("component", "push"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		kitH:          handler.NewKitHandler(kitStore, medicineStore, hub),
		medicineH:     handler.NewMedicineHandler(medicineStore, kitStore, svc, hub, logger.With("component", "medicine")),
		reminderH:     handler.NewReminderHandler(svc, reminderStore, hub, logger.With("component", "reminder")),
		familyMemberH: handler.NewFamilyMemberHandler(familyMemberStore, hub, logger.With("component", "family_member")),
		pushH:         pushH,
		dispatcher:    dispatcher,
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// Dispatcher returns the notification dispatcher, nil when push is not
// configured.
func (s *Server) Dispatcher() *notify.Dispatcher {
	return s.dispatcher
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Kit API routes
	mux.HandleFunc("POST /api/kits", s.kitH.Create)
	mux.HandleFunc("GET /api/kits", s.kitH.List)
	mux.HandleFunc("GET /api/kits/{id}", s.kitH.Get)
	mux.HandleFunc("PUT /api/kits/{id}", s.kitH.Update)
	mux.HandleFunc("DELETE /api/kits/{id}", s.kitH.Delete)
	mux.HandleFunc("GET /api/kits/{id}/medicines", s.kitH.ListMedicines)

	// Medicine API routes
	mux.HandleFunc("POST /api/medicines", s.medicineH.Create)
	mux.HandleFunc("GET /api/medicines", s.medicineH.List)
	mux.HandleFunc("GET /api/medicines/{id}", s.medicineH.Get)
	mux.HandleFunc("PUT /api/medicines/{id}", s.medicineH.Update)
	mux.HandleFunc("DELETE /api/medicines/{id}", s.medicineH.Delete)

	// Stock API routes
	mux.HandleFunc("POST /api/medicines/{id}/stocks", s.medicineH.CreateStock)
	mux.HandleFunc("GET /api/medicines/{id}/stocks", s.medicineH.ListStocks)
	mux.HandleFunc("PUT /api/medicines/{id}/stocks/{stockID}", s.medicineH.UpdateStock)
	mux.HandleFunc("DELETE /api/medicines/{id}/stocks/{stockID}", s.medicineH.DeleteStock)

	// Reminder API routes
	mux.HandleFunc("POST /api/reminders", s.reminderH.Create)
	mux.HandleFunc("GET /api/reminders", s.reminderH.ListActive)
	mux.HandleFunc("PUT /api/reminders/{id}", s.reminderH.Update)
	mux.HandleFunc("DELETE /api/reminders/{id}", s.reminderH.Delete)

	// Intake API routes
	mux.HandleFunc("GET /api/intakes/today", s.reminderH.TodayIntakes)
	mux.HandleFunc("POST /api/intakes/{notificationID}/taken", s.reminderH.MarkTaken)

	// Family member API routes
	mux.HandleFunc("GET /api/family-members", s.familyMemberH.List)
	mux.HandleFunc("POST /api/family-members", s.familyMemberH.Create)
	mux.HandleFunc("PUT /api/family-members/{id}", s.familyMemberH.Update)
	mux.HandleFunc("DELETE /api/family-members/{id}", s.familyMemberH.Delete)
	mux.HandleFunc("PUT /api/family-members/sort", s.familyMemberH.UpdateSortOrder)

	// PIN routes
	mux.HandleFunc("POST /api/family-members/{id}/pin", s.familyMemberH.SetPIN)
	mux.HandleFunc("DELETE /api/family-members/{id}/pin", s.familyMemberH.ClearPIN)
	mux.HandleFunc("POST /api/family-members/{id}/pin/verify", s.rateLimitedHandler(s.familyMemberH.VerifyPIN))

	// Push notification API routes
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
