// Package handlers exposes the marketplace services over HTTP. The
// handlers are thin: decode the request, resolve the acting user,
// call the service, translate the error kind to a status code. All
// business rules live in the controller/workflow layers.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autolot/marketplace/internal/marketplace/auth"
	e "github.com/autolot/marketplace/internal/marketplace/errors"
	"github.com/autolot/marketplace/internal/marketplace/models"
	"github.com/autolot/marketplace/internal/marketplace/workflow"
)

const dateLayout = "2006-01-02"

// CarController is the car service surface the handlers invoke.
type CarController interface {
	SubmitCar(ctx context.Context, actor *models.User, car *models.Car) (*models.Car, error)
	GetCar(ctx context.Context, id uuid.UUID) (*models.Car, error)
	Transition(ctx context.Context, carID uuid.UUID, actor *models.User, action workflow.Action, reason string) (*models.Car, error)
	UpdateSpecs(ctx context.Context, actor *models.User, update *models.CarUpdate) (*models.Car, error)
	Delete(ctx context.Context, actor *models.User, carID uuid.UUID) error
}

// BookingController is the booking service surface the handlers invoke.
type BookingController interface {
	CheckAvailability(ctx context.Context, carID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	CreateBooking(ctx context.Context, actor *models.User, carID uuid.UUID, start, end time.Time) (*models.RentalBooking, error)
	Transition(ctx context.Context, bookingID uuid.UUID, actor *models.User, action workflow.Action, reason string) (*models.RentalBooking, error)
}

// PurchaseController is the purchase service surface the handlers invoke.
type PurchaseController interface {
	CreatePurchase(ctx context.Context, actor *models.User, carID uuid.UUID) (*models.Purchase, error)
	Transition(ctx context.Context, purchaseID uuid.UUID, actor *models.User, action workflow.Action) (*models.Purchase, error)
}

// CompanyController is the company service surface the handlers invoke.
type CompanyController interface {
	SubmitRegistration(ctx context.Context, req *models.CompanyRegistrationRequest) (*models.CompanyRegistrationRequest, error)
	ApproveRegistration(ctx context.Context, requestID uuid.UUID, actor *models.User) (*models.DealershipCompany, error)
	RejectRegistration(ctx context.Context, requestID uuid.UUID, actor *models.User, reason string) (*models.CompanyRegistrationRequest, error)
	Deactivate(ctx context.Context, dealershipID uuid.UUID, actor *models.User) (*models.DealershipCompany, error)
	PromoteToAdmin(ctx context.Context, userID, dealershipID uuid.UUID, actor *models.User) (*models.User, error)
}

// ActorResolver loads the authenticated user identified by the token
// claims.
type ActorResolver interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Handler wires the marketplace services to HTTP routes.
type Handler struct {
	cars      CarController
	bookings  BookingController
	purchases PurchaseController
	companies CompanyController
	actors    ActorResolver
	logger    *zap.Logger
}

// NewHandler constructs a Handler over the given services.
func NewHandler(cars CarController, bookings BookingController, purchases PurchaseController, companies CompanyController, actors ActorResolver, logger *zap.Logger) *Handler {
	return &Handler{
		cars:      cars,
		bookings:  bookings,
		purchases: purchases,
		companies: companies,
		actors:    actors,
		logger:    logger.Named("http"),
	}
}

// Routes mounts all marketplace endpoints. Everything except
// registration submission and the health check sits behind the JWT
// middleware.
func (h *Handler) Routes(jwtSecret string) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Post("/v1/registrations", h.SubmitRegistration)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwtSecret))

		r.Post("/v1/registrations/{id}/approve", h.ApproveRegistration)
		r.Post("/v1/registrations/{id}/reject", h.RejectRegistration)
		r.Post("/v1/dealerships/{id}/deactivate", h.DeactivateDealership)
		r.Post("/v1/dealerships/{id}/admins", h.PromoteAdmin)

		r.Post("/v1/cars", h.SubmitCar)
		r.Get("/v1/cars/{id}", h.GetCar)
		r.Patch("/v1/cars/{id}", h.UpdateCarSpecs)
		r.Delete("/v1/cars/{id}", h.DeleteCar)
		r.Post("/v1/cars/{id}/approve", h.carAction(workflow.ActionApprove))
		r.Post("/v1/cars/{id}/reject", h.carAction(workflow.ActionReject))
		r.Post("/v1/cars/{id}/mark_sold", h.carAction(workflow.ActionMarkSold))

		r.Get("/v1/bookings/availability", h.CheckAvailability)
		r.Post("/v1/bookings", h.CreateBooking)
		r.Post("/v1/bookings/{id}/approve", h.bookingAction(workflow.ActionApprove))
		r.Post("/v1/bookings/{id}/reject", h.bookingAction(workflow.ActionReject))
		r.Post("/v1/bookings/{id}/start", h.bookingAction(workflow.ActionStart))
		r.Post("/v1/bookings/{id}/complete", h.bookingAction(workflow.ActionComplete))
		r.Post("/v1/bookings/{id}/cancel", h.bookingAction(workflow.ActionCancel))

		r.Post("/v1/purchases", h.CreatePurchase)
		r.Post("/v1/purchases/{id}/mark_paid", h.purchaseAction(workflow.ActionMarkPaid))
		r.Post("/v1/purchases/{id}/mark_failed", h.purchaseAction(workflow.ActionMarkFailed))
	})

	return r
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return nil, false
	}
	actor, err := h.actors.GetUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("unknown user"))
		return nil, false
	}
	return actor, true
}

func urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// --- company endpoints ---

type registrationRequest struct {
	CompanyName            string `json:"company_name"`
	CompanyEmail           string `json:"company_email"`
	CompanyPhone           string `json:"company_phone"`
	CompanyCity            string `json:"company_city"`
	CompanyLicenseNumber   string `json:"company_license_number"`
	CompanyLicenseDocument string `json:"company_license_document"`
}

func (h *Handler) SubmitRegistration(w http.ResponseWriter, r *http.Request) {
	var body registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body"))
		return
	}

	req, err := h.companies.SubmitRegistration(r.Context(), &models.CompanyRegistrationRequest{
		CompanyName:            body.CompanyName,
		CompanyEmail:           body.CompanyEmail,
		CompanyPhone:           body.CompanyPhone,
		CompanyCity:            body.CompanyCity,
		CompanyLicenseNumber:   body.CompanyLicenseNumber,
		CompanyLicenseDocument: body.CompanyLicenseDocument,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) ApproveRegistration(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	dealership, err := h.companies.ApproveRegistration(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealership)
}

func (h *Handler) RejectRegistration(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	req, err := h.companies.RejectRegistration(r.Context(), id, actor, decodeReason(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) DeactivateDealership(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	dealership, err := h.companies.Deactivate(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealership)
}

func (h *Handler) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	dealershipID, ok := urlID(w, r)
	if !ok {
		return
	}

	var body struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}

	user, err := h.companies.PromoteToAdmin(r.Context(), body.UserID, dealershipID, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// --- car endpoints ---

type carRequest struct {
	DealershipID      uuid.UUID `json:"dealership_id"`
	IsCompanyOwned    bool      `json:"is_company_owned"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Brand             string    `json:"brand"`
	Model             string    `json:"model"`
	Year              int       `json:"year"`
	Mileage           int       `json:"mileage"`
	Price             float64   `json:"price"`
	EngineCapacity    float64   `json:"engine_capacity"`
	FuelType          string    `json:"fuel_type"`
	Transmission      string    `json:"transmission"`
	Color             string    `json:"color"`
	RentalPricePerDay float64   `json:"rental_price_per_day"`
	IsForSale         bool      `json:"is_for_sale"`
	IsForRent         bool      `json:"is_for_rent"`
}

func (h *Handler) SubmitCar(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var body carRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body"))
		return
	}

	car, err := h.cars.SubmitCar(r.Context(), actor, &models.Car{
		DealershipID:      body.DealershipID,
		IsCompanyOwned:    body.IsCompanyOwned,
		Title:             body.Title,
		Description:       body.Description,
		Brand:             body.Brand,
		Model:             body.Model,
		Year:              body.Year,
		Mileage:           body.Mileage,
		Price:             body.Price,
		EngineCapacity:    body.EngineCapacity,
		FuelType:          body.FuelType,
		Transmission:      body.Transmission,
		Color:             body.Color,
		RentalPricePerDay: body.RentalPricePerDay,
		IsForSale:         body.IsForSale,
		IsForRent:         body.IsForRent,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

func (h *Handler) GetCar(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	car, err := h.cars.GetCar(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (h *Handler) UpdateCarSpecs(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	var update models.CarUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body"))
		return
	}
	update.ID = id

	car, err := h.cars.UpdateSpecs(r.Context(), actor, &update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (h *Handler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	if err := h.cars.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) carAction(action workflow.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		car, err := h.cars.Transition(r.Context(), id, actor, action, decodeReason(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, car)
	}
}

// --- booking endpoints ---

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	carID, err := uuid.Parse(r.URL.Query().Get("car_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("car_id is required"))
		return
	}
	start, err := time.Parse(dateLayout, r.URL.Query().Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid start_date, use YYYY-MM-DD"))
		return
	}
	end, err := time.Parse(dateLayout, r.URL.Query().Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid end_date, use YYYY-MM-DD"))
		return
	}

	available, err := h.bookings.CheckAvailability(r.Context(), carID, start, end, nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"car_id":     carID,
		"start_date": start.Format(dateLayout),
		"end_date":   end.Format(dateLayout),
		"available":  available,
	})
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var body struct {
		CarID     uuid.UUID `json:"car_id"`
		StartDate string    `json:"start_date"`
		EndDate   string    `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CarID == uuid.Nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("car_id, start_date and end_date are required"))
		return
	}
	start, err := time.Parse(dateLayout, body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid start_date, use YYYY-MM-DD"))
		return
	}
	end, err := time.Parse(dateLayout, body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid end_date, use YYYY-MM-DD"))
		return
	}

	booking, err := h.bookings.CreateBooking(r.Context(), actor, body.CarID, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (h *Handler) bookingAction(action workflow.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		booking, err := h.bookings.Transition(r.Context(), id, actor, action, decodeReason(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}

// --- purchase endpoints ---

func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var body struct {
		CarID uuid.UUID `json:"car_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CarID == uuid.Nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("car_id is required"))
		return
	}

	purchase, err := h.purchases.CreatePurchase(r.Context(), actor, body.CarID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, purchase)
}

func (h *Handler) purchaseAction(action workflow.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		purchase, err := h.purchases.Transition(r.Context(), id, actor, action)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, purchase)
	}
}

// --- helpers ---

func decodeReason(r *http.Request) string {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return ""
	}
	return body.Reason
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeServiceError maps the core error kinds to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, e.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, e.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, e.ErrDateConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, e.ErrInvalidTransition),
		errors.Is(err, e.ErrInvalidDates),
		errors.Is(err, e.ErrCarUnavailable),
		errors.Is(err, e.ErrCarSold),
		errors.Is(err, e.ErrAlreadyPaid),
		errors.Is(err, e.ErrAlreadyPurchased),
		errors.Is(err, e.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, fmt.Errorf("internal error"))
	}
}
