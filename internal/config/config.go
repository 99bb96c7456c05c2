package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	HTTPAddr     string
	APIKeyPepper string

	// X (Twitter) verification. The bearer token is intentionally not
	// required at startup: verification endpoints report it missing at
	// call time so the rest of the API stays usable without it.
	XBearerToken string

	VerifyTTLMinutes   int
	VerifyMaxPosts     int
	SurgeGateEnabled   bool
	SurgeWindowMinutes int
	SurgeMaxChallenges int
	SurgeHoldMessage   string
}

const defaultHoldMessage = "Verification is temporarily on hold due to high demand. Please try again in a few minutes."

func Load() (Config, error) {
	// Optional: load local .env for development. Missing file is fine.
	_ = godotenv.Load()

	ttlMinutes := getenvIntDefault("CLAWHAMMER_VERIFY_TTL_MINUTES", 15)
	if ttlMinutes < 1 {
		ttlMinutes = 1
	}

	maxPosts := getenvIntDefault("CLAWHAMMER_VERIFY_MAX_POSTS", 8)
	if maxPosts < 1 {
		maxPosts = 1
	}
	if maxPosts > 10 {
		maxPosts = 10
	}

	surgeWindow := getenvIntDefault("CLAWHAMMER_VERIFY_SURGE_WINDOW_MINUTES", 10)
	if surgeWindow < 1 {
		surgeWindow = 1
	}

	surgeMax := getenvIntDefault("CLAWHAMMER_VERIFY_SURGE_MAX", 50)
	if surgeMax < 1 {
		surgeMax = 1
	}

	cfg := Config{
		DatabaseURL:  os.Getenv("CLAWHAMMER_DATABASE_URL"),
		HTTPAddr:     getenvDefault("CLAWHAMMER_HTTP_ADDR", ":8080"),
		APIKeyPepper: os.Getenv("CLAWHAMMER_API_KEY_PEPPER"),

		XBearerToken: strings.TrimSpace(os.Getenv("CLAWHAMMER_X_BEARER_TOKEN")),

		VerifyTTLMinutes:   ttlMinutes,
		VerifyMaxPosts:     maxPosts,
		SurgeGateEnabled:   getenvBool("CLAWHAMMER_VERIFY_SURGE_GATE"),
		SurgeWindowMinutes: surgeWindow,
		SurgeMaxChallenges: surgeMax,
		SurgeHoldMessage:   getenvDefault("CLAWHAMMER_VERIFY_HOLD_MESSAGE", defaultHoldMessage),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("CLAWHAMMER_DATABASE_URL is required")
	}
	if cfg.APIKeyPepper == "" {
		return Config{}, errors.New("CLAWHAMMER_API_KEY_PEPPER is required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
