// Package api exposes the role-scoped dashboard HTTP surface on localhost.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"coffeebeat/internal/cart"
	"coffeebeat/internal/config"
	"coffeebeat/internal/export"
	"coffeebeat/internal/metrics"
	"coffeebeat/internal/models"
	"coffeebeat/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPServer serves the derived dashboard views over HTTP.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings *service.BookingService
	carts    *cart.Builder
	exporter *export.Exporter
	server   *http.Server
	auth     *HTTPAuth
	logger   zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, bookings *service.BookingService, carts *cart.Builder, exporter *export.Exporter, logger *zerolog.Logger) *HTTPServer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, bookings: bookings, carts: carts, exporter: exporter, logger: base}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/tables", srv.handleTables)
	mux.HandleFunc("/api/v1/tables/", srv.handleTableClear)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/my", srv.handleMyBookings)
	mux.HandleFunc("/api/v1/bookings/export", srv.handleExport)
	mux.HandleFunc("/api/v1/cart", srv.handleCart)
	mux.HandleFunc("/api/v1/cart/items", srv.handleCartItems)
	mux.HandleFunc("/api/v1/cart/items/", srv.handleCartItemDelete)
	mux.HandleFunc("/api/v1/orders", srv.handleOrders)
	mux.HandleFunc("/api/v1/refresh", srv.handleRefresh)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("dashboard API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("tables")
	plan := s.bookings.FloorPlan(time.Now())
	writeJSON(w, http.StatusOK, map[string]any{"tables": plan})
}

func (s *HTTPServer) handleTableClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/tables/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	number, action, found := strings.Cut(rest, "/")
	if !found || action != "clear" || number == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	metrics.IncHTTP("table_clear")
	bookingID, err := s.bookings.ClearTable(r.Context(), number)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownTable):
			writeError(w, http.StatusNotFound, "unknown table")
		case errors.Is(err, service.ErrNoActiveBooking):
			writeError(w, http.StatusConflict, "no active booking on table")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"cleared_booking_id": bookingID})
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("bookings")
	writeJSON(w, http.StatusOK, map[string]any{"bookings": s.bookings.Bookings(time.Now())})
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("my_bookings")
	writeJSON(w, http.StatusOK, map[string]any{"bookings": s.bookings.Bookings(time.Now())})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("export")

	now := time.Now()
	views := s.bookings.Bookings(now)
	bookings := make([]*models.Booking, 0, len(views))
	statuses := make(map[string]models.BookingStatus, len(views))
	for _, v := range views {
		bookings = append(bookings, v.Booking)
		statuses[v.Booking.ID] = v.EffectiveStatus
	}

	path, err := s.exporter.BookingsReport(bookings, statuses, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": path})
}

func (s *HTTPServer) handleCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("cart")
	items, err := s.carts.Items(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *HTTPServer) handleCartItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("cart_add")

	var item models.CartItem
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.carts.AddItem(r.Context(), item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (s *HTTPServer) handleCartItemDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("cart_remove")

	const prefix = "/api/v1/cart/items/"
	productID := strings.TrimPrefix(r.URL.Path, prefix)
	if productID == "" || strings.Contains(productID, "/") {
		writeError(w, http.StatusBadRequest, "product id is required")
		return
	}

	if err := s.carts.RemoveItem(r.Context(), productID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *HTTPServer) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("orders")

	var req struct {
		OrderType       models.OrderType `json:"orderType"`
		TableNumber     string           `json:"tableNumber"`
		DeliveryAddress string           `json:"deliveryAddress"`
		Notes           string           `json:"notes"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := s.carts.Checkout(r.Context(), cart.CheckoutRequest{
		OrderType:       req.OrderType,
		TableNumber:     req.TableNumber,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrEmptyCart),
			errors.Is(err, cart.ErrTableRequired),
			errors.Is(err, cart.ErrAddressRequired),
			errors.Is(err, cart.ErrUnknownOrderType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("refresh")

	staff := s.auth.requestRole(r).IsStaff()
	if err := s.bookings.Refresh(r.Context(), staff); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// HTTPAuth provides API-key auth with role-scoped access and per-key rate
// limiting.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errRoleDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

var errRoleDenied = errors.New("role not permitted")

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.headerName()))
	if apiKey == "" {
		return fmt.Errorf("missing api key header")
	}

	client, ok := a.lookup(apiKey)
	if !ok {
		return fmt.Errorf("invalid api key")
	}

	required := requiredRoles(r.URL.Path)
	if len(required) == 0 {
		return nil
	}
	role := models.ParseRole(client.Role)
	for _, req := range required {
		if role == req {
			return nil
		}
	}
	return errRoleDenied
}

// lookup finds the client key with a constant-time comparison.
func (a *HTTPAuth) lookup(apiKey string) (config.APIClientKey, bool) {
	for key, client := range a.clients {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return client, true
		}
	}
	return config.APIClientKey{}, false
}

func (a *HTTPAuth) headerName() string {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}
	return header
}

// requestRole resolves the caller's role from the API key, RoleUnknown when
// auth is disabled or the key is absent.
func (a *HTTPAuth) requestRole(r *http.Request) models.Role {
	apiKey := strings.TrimSpace(r.Header.Get(a.headerName()))
	if client, ok := a.lookup(apiKey); ok {
		return models.ParseRole(client.Role)
	}
	return models.RoleUnknown
}

// requiredRoles maps a path to the roles that may call it. An empty result
// means any authenticated key.
func requiredRoles(path string) []models.Role {
	staff := []models.Role{models.RoleAdmin, models.RoleChef, models.RoleWaiter}
	switch {
	case strings.HasPrefix(path, "/api/v1/tables"):
		return staff
	case path == "/api/v1/bookings", path == "/api/v1/bookings/export":
		return staff
	default:
		return nil
	}
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	key := a.clientKey(r)
	lim := a.getLimiter(key)
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.headerName())); apiKey != "" {
		return apiKey
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
