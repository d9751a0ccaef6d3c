package controller

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/autolot/marketplace/internal/marketplace/db"
	"github.com/autolot/marketplace/internal/marketplace/events"
	"github.com/autolot/marketplace/internal/marketplace/models"
)

// MockProducer records produced events instead of writing to Kafka.
type MockProducer struct {
	produced []events.EventType
}

func (m *MockProducer) Produce(eventType events.EventType, _ uuid.UUID, _ interface{}) {
	m.produced = append(m.produced, eventType)
}

// fixture wires the services over an in-memory SQLite store with a
// seeded dealership (and a second one for cross-dealership checks).
type fixture struct {
	repo     *db.Repository
	producer *MockProducer

	cars      *CarService
	bookings  *BookingService
	purchases *PurchaseService
	companies *CompanyService

	superAdmin *models.User
	admin      *models.User
	otherAdmin *models.User
	renter     *models.User
	buyer      *models.User

	dealership      *models.DealershipCompany
	otherDealership *models.DealershipCompany
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo, err := db.NewSQLite(":memory:")
	require.NoError(t, err, "failed to open test database")

	producer := &MockProducer{}
	logger := zaptest.NewLogger(t)

	f := &fixture{
		repo:      repo,
		producer:  producer,
		cars:      NewCarService(repo, producer, logger),
		bookings:  NewBookingService(repo, producer, logger),
		purchases: NewPurchaseService(repo, producer, logger),
		companies: NewCompanyService(repo, producer, logger),
	}

	f.dealership = &models.DealershipCompany{
		ID: uuid.New(), Name: "Sunset Motors", City: "Lisbon", IsActive: true, ApprovedAt: time.Now(),
	}
	f.otherDealership = &models.DealershipCompany{
		ID: uuid.New(), Name: "Harbor Autos", City: "Porto", IsActive: true, ApprovedAt: time.Now(),
	}
	require.NoError(t, repo.CreateDealership(ctx, f.dealership))
	require.NoError(t, repo.CreateDealership(ctx, f.otherDealership))

	f.superAdmin = seedUser(t, repo, "root", models.RoleSuperAdmin, nil)
	f.admin = seedUser(t, repo, "admin", models.RoleDealershipAdmin, &f.dealership.ID)
	f.otherAdmin = seedUser(t, repo, "rival", models.RoleDealershipAdmin, &f.otherDealership.ID)
	f.renter = seedUser(t, repo, "renter", models.RoleUser, nil)
	f.buyer = seedUser(t, repo, "buyer", models.RoleUser, nil)

	return f
}

func seedUser(t *testing.T, repo *db.Repository, username string, role models.Role, dealershipID *uuid.UUID) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Role:         role,
		DealershipID: dealershipID,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// seedApprovedCar puts an APPROVED car on the fixture's main
// dealership, listed for both sale and rent.
func (f *fixture) seedApprovedCar(t *testing.T, price, dailyRate float64) *models.Car {
	t.Helper()
	car := &models.Car{
		ID:                uuid.New(),
		DealershipID:      f.dealership.ID,
		Title:             "2019 Golf",
		Brand:             "Volkswagen",
		Model:             "Golf",
		Year:              2019,
		Price:             price,
		RentalPricePerDay: dailyRate,
		Status:            models.CarApproved,
		IsForSale:         true,
		IsForRent:         true,
	}
	require.NoError(t, f.repo.CreateCar(context.Background(), car))
	return car
}

func date(day int) time.Time {
	return time.Date(2025, time.June, day, 0, 0, 0, 0, time.UTC)
}
