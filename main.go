package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oritualAPI/handlers"
	"oritualAPI/internal/dates"
	"oritualAPI/middleware"
	"oritualAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool           *pgxpool.Pool
	clock            *dates.Clock
	userService      *services.UserService
	journalService   *services.JournalService
	goalService      *services.GoalService
	habitService     *services.HabitService
	coupleService    *services.CoupleService
	todayService     *services.TodayService
	analyticsService *services.AnalyticsService
	checkoutService  *services.CheckoutService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	tz := os.Getenv("REFERENCE_TIMEZONE")
	if tz == "" {
		tz = "America/Sao_Paulo"
	}
	clock, err = dates.NewClock(tz)
	if err != nil {
		log.Fatal("Invalid REFERENCE_TIMEZONE:", err)
	}
	log.Printf("Reference timezone: %s", tz)

	userService = services.NewUserService(dbPool)
	journalService = services.NewJournalService(dbPool, clock)
	goalService = services.NewGoalService(dbPool, clock)
	habitService = services.NewHabitService(dbPool, clock)
	coupleService = services.NewCoupleService(dbPool, clock)
	todayService = services.NewTodayService(clock, userService, journalService, habitService, coupleService)
	analyticsService = services.NewAnalyticsService(
		dbPool, clock,
		userService, journalService, habitService, coupleService, goalService,
		os.Getenv("DASHBOARD_INCLUDE_COUPLE_HABITS") != "false",
	)
	checkoutService = services.NewCheckoutService(userService)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	journalHandler := handlers.NewJournalHandler(journalService, todayService)
	goalHandler := handlers.NewGoalHandler(goalService)
	habitHandler := handlers.NewHabitHandler(habitService)
	coupleHandler := handlers.NewCoupleHandler(coupleService)
	onboardingHandler := handlers.NewOnboardingHandler(userService, habitService, goalService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "oritual-api"}`))
	}).Methods("GET")

	standardRouter.HandleFunc("/webhooks/stripe", webhookHandler.HandleStripeWebhook).Methods("POST")

	// OAuth flow lives outside the protected subtree
	standardRouter.HandleFunc("/login/google", authHandler.Login).Methods("GET")
	standardRouter.HandleFunc("/auth/callback/google", authHandler.Callback).Methods("GET")
	standardRouter.HandleFunc("/logout", authHandler.Logout).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	// This inherits middleware from standardRouter
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE SESSION COOKIE)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.SessionAuthMiddleware(userService))

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/settings", userHandler.UpdateSettings).Methods("PUT")
	protected.HandleFunc("/user/affirmation", userHandler.SaveAffirmation).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")

	protected.HandleFunc("/onboarding/affirmation", onboardingHandler.SaveAffirmation).Methods("POST")
	protected.HandleFunc("/onboarding/habits", onboardingHandler.CreateHabits).Methods("POST")
	protected.HandleFunc("/onboarding/goals", onboardingHandler.CreateGoals).Methods("POST")
	protected.HandleFunc("/onboarding/finish", onboardingHandler.Finish).Methods("POST")
	protected.HandleFunc("/onboarding/skip", onboardingHandler.Skip).Methods("POST")

	protected.HandleFunc("/journal/today", journalHandler.GetToday).Methods("GET")
	protected.HandleFunc("/journal/today", journalHandler.UpdateEntry).Methods("PUT")
	protected.HandleFunc("/journal/{date}", journalHandler.GetDay).Methods("GET")
	protected.HandleFunc("/tasks", journalHandler.AddTask).Methods("POST")
	protected.HandleFunc("/tasks/{id}", journalHandler.ToggleTask).Methods("PUT")
	protected.HandleFunc("/tasks/{id}", journalHandler.DeleteTask).Methods("DELETE")

	protected.HandleFunc("/habits", habitHandler.GetHabits).Methods("GET")
	protected.HandleFunc("/habits", habitHandler.CreateHabit).Methods("POST")
	protected.HandleFunc("/habits/{id}/active", habitHandler.SetActive).Methods("PUT")
	protected.HandleFunc("/habits/{id}/completion", habitHandler.ToggleCompletion).Methods("PUT")
	protected.HandleFunc("/habits/{id}", habitHandler.DeleteHabit).Methods("DELETE")

	protected.HandleFunc("/goals", goalHandler.GetGoals).Methods("GET")
	protected.HandleFunc("/goals", goalHandler.CreateGoal).Methods("POST")
	protected.HandleFunc("/goals/{id}/progress", goalHandler.UpdateProgress).Methods("PUT")
	protected.HandleFunc("/goals/{id}/progress-log", goalHandler.GetProgressLog).Methods("GET")
	protected.HandleFunc("/goals/{id}", goalHandler.DeleteGoal).Methods("DELETE")

	protected.HandleFunc("/couple", coupleHandler.GetCouple).Methods("GET")
	protected.HandleFunc("/couple/invite", coupleHandler.GenerateInvite).Methods("POST")
	protected.HandleFunc("/couple/redeem", coupleHandler.RedeemInvite).Methods("POST")
	protected.HandleFunc("/couple/goals", coupleHandler.GetGoals).Methods("GET")
	protected.HandleFunc("/couple/goals", coupleHandler.CreateGoal).Methods("POST")
	protected.HandleFunc("/couple/goals/{id}/progress", coupleHandler.UpdateGoalProgress).Methods("PUT")
	protected.HandleFunc("/couple/goals/{id}/progress-log", coupleHandler.GetGoalProgressLog).Methods("GET")
	protected.HandleFunc("/couple/goals/{id}", coupleHandler.DeleteGoal).Methods("DELETE")
	protected.HandleFunc("/couple/habits", coupleHandler.GetHabits).Methods("GET")
	protected.HandleFunc("/couple/habits", coupleHandler.CreateHabit).Methods("POST")
	protected.HandleFunc("/couple/habits/{id}/active", coupleHandler.SetHabitActive).Methods("PUT")
	protected.HandleFunc("/couple/habits/{id}/completion", coupleHandler.ToggleHabitCompletion).Methods("PUT")
	protected.HandleFunc("/couple/habits/{id}", coupleHandler.DeleteHabit).Methods("DELETE")

	protected.HandleFunc("/dashboard", analyticsHandler.GetDashboard).Methods("GET")

	protected.HandleFunc("/checkout", checkoutHandler.CreateCheckout).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
