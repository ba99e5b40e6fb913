package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/dispatchly/lastmile/internal/auth"
	"github.com/dispatchly/lastmile/internal/db"
	"github.com/dispatchly/lastmile/internal/handlers"
	"github.com/dispatchly/lastmile/internal/invite"
	"github.com/dispatchly/lastmile/internal/middleware"
	"github.com/dispatchly/lastmile/internal/models"
	"github.com/dispatchly/lastmile/internal/provision"
	"github.com/dispatchly/lastmile/internal/trips"
)

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	log.Info("Connected to MongoDB")

	database := db.Database(client)

	inviteSalt := os.Getenv("INVITE_SALT")
	if inviteSalt == "" {
		inviteSalt = os.Getenv("JWT_SECRET")
	}
	inviteGen, err := invite.NewGenerator(inviteSalt)
	if err != nil {
		log.WithError(err).Fatal("Failed to create invite code generator")
	}

	users := &db.MongoUserCollection{Collection: database.Collection("users")}
	companies := &db.MongoCompanyCollection{Collection: database.Collection("companies"), Invites: inviteGen}
	memberships := &db.MongoMembershipCollection{Collection: database.Collection("company_drivers")}
	driverProfiles := &db.MongoDriverProfileCollection{Collection: database.Collection("driver_profiles")}
	adminProfiles := &db.MongoAdminProfileCollection{Collection: database.Collection("admin_profiles")}
	tripCollection := &db.MongoTripCollection{Collection: database.Collection("trips")}
	vehicles := &db.MongoVehicleCollection{Collection: database.Collection("vehicles")}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}

	provisioner := provision.NewProvisioner(companies, driverProfiles, adminProfiles, log.StandardLogger())
	tripService := trips.NewService(tripCollection, users, log.StandardLogger())

	authHandler := handlers.NewAuthHandler(authService, users, provisioner)
	userHandler := handlers.NewUserHandler(users, companies, memberships, driverProfiles, adminProfiles, vehicles, tripCollection, provisioner, log.StandardLogger())
	tripHandler := handlers.NewTripHandler(tripService, tripCollection)
	companyHandler := handlers.NewCompanyHandler(companies, memberships, users)
	driverHandler := handlers.NewDriverHandler(driverProfiles)
	vehicleHandler := handlers.NewVehicleHandler(vehicles)

	authMw := middleware.NewAuthMiddleware(authService)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)

	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/profile", authHandler.GetProfile)
	mux.HandleFunc("PUT /api/auth/profile", authHandler.UpdateProfile)
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)

	adminOnly := authMw.RequireRole()
	mux.Handle("GET /api/users", adminOnly(http.HandlerFunc(userHandler.List)))
	mux.Handle("PUT /api/users/{id}/role", adminOnly(http.HandlerFunc(userHandler.UpdateRole)))
	mux.Handle("DELETE /api/users/{id}", adminOnly(http.HandlerFunc(userHandler.Delete)))
	mux.Handle("POST /api/drivers/{id}/verify", adminOnly(http.HandlerFunc(driverHandler.Verify)))

	ownerOnly := authMw.RequireRole(models.RoleCompanyOwner)
	mux.Handle("POST /api/trips", ownerOnly(http.HandlerFunc(tripHandler.Create)))
	mux.HandleFunc("GET /api/trips", tripHandler.List)
	mux.HandleFunc("GET /api/trips/assigned", tripHandler.ListAssigned)
	mux.HandleFunc("GET /api/trips/{id}", tripHandler.Get)
	mux.HandleFunc("POST /api/trips/{id}/assign", tripHandler.Assign)
	mux.HandleFunc("POST /api/trips/{id}/start", tripHandler.Start)
	mux.HandleFunc("POST /api/trips/{id}/confirm", tripHandler.Confirm)
	mux.HandleFunc("POST /api/trips/{id}/cancel", tripHandler.Cancel)
	mux.HandleFunc("POST /api/trips/{id}/rate", tripHandler.Rate)

	mux.Handle("GET /api/companies/me", ownerOnly(http.HandlerFunc(companyHandler.GetMine)))
	mux.Handle("PUT /api/companies/me", ownerOnly(http.HandlerFunc(companyHandler.UpdateMine)))
	mux.Handle("GET /api/companies/me/drivers", ownerOnly(http.HandlerFunc(companyHandler.ListDrivers)))
	mux.HandleFunc("POST /api/companies/join", companyHandler.Join)

	driverOnly := authMw.RequireDriver
	mux.Handle("GET /api/drivers/me/profile", driverOnly(http.HandlerFunc(driverHandler.GetProfile)))
	mux.Handle("PUT /api/drivers/me/profile", driverOnly(http.HandlerFunc(driverHandler.UpdateProfile)))
	mux.Handle("POST /api/vehicles", driverOnly(http.HandlerFunc(vehicleHandler.Create)))
	mux.Handle("GET /api/vehicles", driverOnly(http.HandlerFunc(vehicleHandler.List)))
	mux.Handle("GET /api/vehicles/{id}", driverOnly(http.HandlerFunc(vehicleHandler.Get)))
	mux.Handle("PUT /api/vehicles/{id}", driverOnly(http.HandlerFunc(vehicleHandler.Update)))
	mux.Handle("DELETE /api/vehicles/{id}", driverOnly(http.HandlerFunc(vehicleHandler.Delete)))

	handler := middleware.RequestLogger(log.StandardLogger())(authMw.Authenticate(mux))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("HTTP server listening")
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
