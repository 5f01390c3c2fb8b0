package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"judgehub/internal/api"
	"judgehub/internal/app/service"
	"judgehub/internal/app/worker"
	"judgehub/internal/common/security"
	"judgehub/internal/domain/repository"
	"judgehub/internal/judge"
	"judgehub/internal/platform/cache"
	"judgehub/internal/platform/config"
	"judgehub/internal/platform/database"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()

	// 4. Initialize Redis
	cache.ConnectRedis()
	defer cache.CloseRedis()

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	activityRepo := repository.NewPgActivityRepository(database.DB)
	playlistRepo := repository.NewPgPlaylistRepository(database.DB)

	// 6. Judge client + locker
	judgeClient := judge.NewHTTPClient(
		config.AppConfig.JudgeBaseURL,
		config.AppConfig.JudgeAuthHeader,
		config.AppConfig.JudgeAuthToken,
		config.AppConfig.JudgePollInterval,
		config.AppConfig.JudgePollTimeout,
	)
	locker := cache.NewRedisLocker(cache.RDB)

	// 7. Initialize Services
	authService := service.NewAuthService(userRepo)
	streakService := service.NewStreakService(userRepo, activityRepo, locker, database.DB)
	gradingService := service.NewGradingService(judgeClient, submissionRepo, problemRepo, streakService, database.DB)
	problemService := service.NewProblemService(problemRepo, judgeClient, database.DB)
	playlistService := service.NewPlaylistService(playlistRepo, problemRepo)
	userService := service.NewUserService(userRepo, activityRepo, cache.RDB)

	// 8. Streak decay sweeper (as a goroutine)
	sweeper := worker.NewStreakSweeper(cache.RDB, userRepo, config.AppConfig.StreakSweepInterval)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go sweeper.Start(workerCtx)

	// 9. Initialize Router & HTTP Server
	router := api.NewRouter(authService, problemService, gradingService, playlistService, userService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 130 * time.Second, // Graded submissions block on the judge poll loop
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")
	workerCancel() // Signal sweeper to stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server and sweeper stopped gracefully.")
}
