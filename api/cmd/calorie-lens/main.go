package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"calorie-lens/api/internal/config"
	"calorie-lens/api/internal/handle"
	"calorie-lens/api/internal/imghost"
	"calorie-lens/api/internal/vision"
	"calorie-lens/api/internal/vision/gemini"
	"calorie-lens/api/internal/vision/openai"
)

func main() {
	cfg := config.Load()

	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	} else if strings.TrimSpace(cfg.Port) == "" {
		cfg.Port = "8000"
	}

	engines := &vision.Engines{
		OpenAI: openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel),
		Gemini: gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
	}

	var uploader imghost.Uploader
	if cfg.S3Bucket != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		up, err := imghost.NewS3(ctx, cfg.S3Bucket, cfg.S3Region, cfg.CloudFrontURL)
		cancel()
		if err != nil {
			log.Fatalf("image hosting init: %v", err)
		}
		uploader = up
	} else {
		log.Printf("image hosting disabled: S3_BUCKET is not set, answers carry data-URLs")
	}

	h := handle.New(handle.Options{
		Engines:       engines,
		EngineName:    cfg.VisionEngine,
		Uploader:      uploader,
		MaxImageBytes: cfg.MaxImageBytes,
		Timeout:       time.Duration(cfg.RequestTimeoutSec) * time.Second,
		MobileTimeout: config.ProfileMobile.Timeout(),
	})

	r := gin.Default()
	h.Register(r)

	addr := ":" + cfg.Port
	log.Printf("calorie-lens listening on %s (engine=%s)", addr, cfg.VisionEngine)
	log.Fatal(r.Run(addr))
}
