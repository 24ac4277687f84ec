package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsec-k9/backend/models"
)

// SeedDemo loads the demo fixtures into a fresh Memory store: three users
// (password "password123" for all), one site and one K9. Used when the
// server runs without a database.
func SeedDemo(m *Memory) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed: hashing demo password: %w", err)
	}

	ctx := context.Background()
	demoUsers := []models.User{
		{Name: "Owner Admin", Email: "admin@opsec.local", Role: models.RoleAdmin},
		{Name: "Trainer One", Email: "trainer@opsec.local", Role: models.RoleTrainer},
		{Name: "Handler One", Email: "handler@opsec.local", Role: models.RoleHandler},
	}
	for _, u := range demoUsers {
		u.UserID = uuid.NewString()
		u.PasswordHash = string(hash)
		if err := m.CreateUser(ctx, &u); err != nil {
			return fmt.Errorf("seed: user %s: %w", u.Email, err)
		}
	}

	m.AddSite(models.Site{Name: "OPSEC Training Yard", Lat: 40.0, Lon: -86.0, RadiusMeters: 500})
	m.AddK9(models.K9{Name: "Rex", Breed: "German Shepherd", DOB: "2019-05-01", Sex: "M", CallSign: "Rex", Status: models.K9Active})
	return nil
}
