package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/opsec-k9/backend/cors"
	"github.com/opsec-k9/backend/db"
	"github.com/opsec-k9/backend/media"
	middleware "github.com/opsec-k9/backend/middlewares"
	"github.com/opsec-k9/backend/models"
	"github.com/opsec-k9/backend/routes"
	"github.com/opsec-k9/backend/store"
	"github.com/opsec-k9/backend/workflow"
)

func main() {

	godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev_secret"
		log.Println("JWT_SECRET not set, using dev secret")
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	uploads, err := media.NewStore(uploadDir)
	if err != nil {
		log.Fatalf("Error preparing upload dir: %v", err)
	}

	// With DB_HOST set we run on postgres; without it, demo mode on the
	// seeded in-memory store.
	var st store.Store
	if os.Getenv("DB_HOST") != "" {
		pool, err := db.NewPool()
		if err != nil {
			log.Fatalf("Error connecting database: %v", err)
		}
		defer pool.Close()
		st = store.NewPostgres(pool)
	} else {
		mem := store.NewMemory()
		if err := store.SeedDemo(mem); err != nil {
			log.Fatalf("Error seeding demo data: %v", err)
		}
		log.Println("No DB_HOST set, running with in-memory demo data")
		st = mem
	}

	engine := workflow.NewEngine(st)
	trainingLog := workflow.NewTrainingLog(st)

	auth := middleware.AuthJWT(secret)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	mux := http.NewServeMux()

	// Health check routes
	mux.HandleFunc("GET /{$}", routes.Hello)
	mux.HandleFunc("GET /ping", routes.Ping)

	// Auth and user directory
	mux.Handle("POST /auth/login", routes.Login(st, secret))
	mux.Handle("GET /me", auth(routes.Me(st)))
	mux.Handle("POST /users", auth(adminOnly(routes.CreateUser(st))))

	// Attendance workflow
	mux.Handle("POST /time/clock-in", auth(routes.ClockIn(engine, uploads)))
	mux.Handle("GET /time/pending", auth(routes.ListPending(engine)))
	mux.Handle("GET /time/logs", auth(routes.ReportTimeLogs(engine)))
	mux.Handle("POST /time/approve/{id}", auth(routes.Approve(engine)))
	mux.Handle("POST /time/reject/{id}", auth(routes.Reject(engine)))

	// Training log
	mux.Handle("POST /training-sessions", auth(routes.CreateTraining(trainingLog)))
	mux.Handle("GET /training-sessions", auth(routes.ListTraining(trainingLog)))

	// K9 roster and vaccinations
	mux.Handle("GET /k9s", auth(routes.ListK9s(st)))
	mux.Handle("GET /k9s/{id}", auth(routes.GetK9(st)))
	mux.Handle("POST /k9s/{id}/vaccinations", auth(routes.AddVaccination(st, uploads)))
	mux.Handle("GET /vaccinations/upcoming", auth(routes.UpcomingVaccinations(st)))

	// Site directory
	mux.Handle("POST /sites/nearest", auth(routes.NearestSite(st)))

	allowedOrigins := []string{
		"http://localhost:3000", // dev
	}
	handler := cors.Cors(allowedOrigins, true)(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	fmt.Printf("Server listening on port %s...\n", port)

	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Error start server: %v", err)
	}
}
