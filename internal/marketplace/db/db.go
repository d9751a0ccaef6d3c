// Package db implements the entity store for the marketplace on top
// of GORM. It owns no business rules: transition and availability
// decisions happen in the workflow package, and mutating operations
// are wrapped in WithTransaction by the service layer so the
// read-validate-write sequence is atomic.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	e "github.com/autolot/marketplace/internal/marketplace/errors"
	"github.com/autolot/marketplace/internal/marketplace/models"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewRepository connects to Postgres, retrying with exponential
// backoff while the database comes up, and migrates the schema.
func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var db *gorm.DB
	connect := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		return err
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// NewSQLite opens a SQLite-backed repository, for local development
// and tests. Pass ":memory:" for a throwaway database.
func NewSQLite(dsn string) (*Repository, error) {
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := Migrate(gdb); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: gdb}, nil
}

// Migrate creates or updates the schema for all marketplace entities.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.DealershipCompany{},
		&models.CompanyRegistrationRequest{},
		&models.Car{},
		&models.CarImage{},
		&models.CarInspection{},
		&models.RentalBooking{},
		&models.Purchase{},
	)
}

// WithTransaction runs fn against a transactional repository. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (r *Repository) SaveUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// --- company registration requests ---

func (r *Repository) CreateRegistrationRequest(ctx context.Context, req *models.CompanyRegistrationRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *Repository) GetRegistrationRequest(ctx context.Context, id uuid.UUID) (*models.CompanyRegistrationRequest, error) {
	var req models.CompanyRegistrationRequest
	result := r.db.WithContext(ctx).First(&req, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &req, nil
}

func (r *Repository) SaveRegistrationRequest(ctx context.Context, req *models.CompanyRegistrationRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// --- dealerships ---

func (r *Repository) CreateDealership(ctx context.Context, dealership *models.DealershipCompany) error {
	return r.db.WithContext(ctx).Create(dealership).Error
}

func (r *Repository) GetDealership(ctx context.Context, id uuid.UUID) (*models.DealershipCompany, error) {
	var dealership models.DealershipCompany
	result := r.db.WithContext(ctx).First(&dealership, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &dealership, nil
}

func (r *Repository) SaveDealership(ctx context.Context, dealership *models.DealershipCompany) error {
	return r.db.WithContext(ctx).Save(dealership).Error
}

// --- cars ---

func (r *Repository) CreateCar(ctx context.Context, car *models.Car) error {
	return r.db.WithContext(ctx).Create(car).Error
}

func (r *Repository) GetCar(ctx context.Context, id uuid.UUID) (*models.Car, error) {
	var car models.Car
	result := r.db.WithContext(ctx).First(&car, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &car, nil
}

func (r *Repository) SaveCar(ctx context.Context, car *models.Car) error {
	return r.db.WithContext(ctx).Save(car).Error
}

func (r *Repository) UpdateCarSpecs(ctx context.Context, update *models.CarUpdate) error {
	result := r.db.WithContext(ctx).Model(&models.Car{}).
		Where("id = ?", update.ID).
		Updates(update)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DeleteCar removes a car together with its images, inspection,
// bookings and purchase. The association delete keeps stores without
// foreign key enforcement (the SQLite dev/test store) consistent with
// the cascade constraints Postgres enforces on its own.
func (r *Repository) DeleteCar(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Select(clause.Associations).Delete(&models.Car{ID: id})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// --- car inspections ---

func (r *Repository) GetInspectionByCar(ctx context.Context, carID uuid.UUID) (*models.CarInspection, error) {
	var inspection models.CarInspection
	result := r.db.WithContext(ctx).First(&inspection, "car_id = ?", carID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &inspection, nil
}

func (r *Repository) GetInspection(ctx context.Context, id uuid.UUID) (*models.CarInspection, error) {
	var inspection models.CarInspection
	result := r.db.WithContext(ctx).First(&inspection, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &inspection, nil
}

func (r *Repository) CreateInspection(ctx context.Context, inspection *models.CarInspection) error {
	return r.db.WithContext(ctx).Create(inspection).Error
}

func (r *Repository) SaveInspection(ctx context.Context, inspection *models.CarInspection) error {
	return r.db.WithContext(ctx).Save(inspection).Error
}

// --- car images ---

func (r *Repository) CreateImage(ctx context.Context, image *models.CarImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (*models.CarImage, error) {
	var image models.CarImage
	result := r.db.WithContext(ctx).First(&image, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &image, nil
}

func (r *Repository) SaveImage(ctx context.Context, image *models.CarImage) error {
	return r.db.WithContext(ctx).Save(image).Error
}

// ClearPrimaryImage unsets the primary flag on all of a car's images.
func (r *Repository) ClearPrimaryImage(ctx context.Context, carID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.CarImage{}).
		Where("car_id = ? AND is_primary = ?", carID, true).
		Update("is_primary", false).Error
}

// --- rental bookings ---

func (r *Repository) CreateBooking(ctx context.Context, booking *models.RentalBooking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (*models.RentalBooking, error) {
	var booking models.RentalBooking
	result := r.db.WithContext(ctx).First(&booking, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &booking, nil
}

func (r *Repository) SaveBooking(ctx context.Context, booking *models.RentalBooking) error {
	return r.db.WithContext(ctx).Save(booking).Error
}

// HasBookingConflict reports whether any APPROVED or ACTIVE booking
// for the car overlaps the end-exclusive range [start,end). A booking
// ending exactly on start does not conflict. excludeID, when set,
// ignores that booking so a booking can be re-validated against its
// peers at approval time.
func (r *Repository) HasBookingConflict(ctx context.Context, carID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	blocking := []models.BookingStatus{models.BookingApproved, models.BookingActive}
	query := r.db.WithContext(ctx).Model(&models.RentalBooking{}).
		Where("car_id = ?", carID).
		Where("status IN ?", blocking).
		Where("start_date < ? AND end_date > ?", end, start)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// --- purchases ---

func (r *Repository) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *Repository) GetPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	result := r.db.WithContext(ctx).First(&purchase, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &purchase, nil
}

// PurchaseExistsForCar backs the one-purchase-per-car invariant; the
// unique index on car_id is the last line of defense under race.
func (r *Repository) PurchaseExistsForCar(ctx context.Context, carID uuid.UUID) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("car_id = ?", carID).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) SavePurchase(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Save(purchase).Error
}
