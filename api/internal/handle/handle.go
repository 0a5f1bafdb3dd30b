package handle

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"calorie-lens/api/internal/imghost"
	"calorie-lens/api/internal/vision"
)

type Handle struct {
	engs       *vision.Engines
	engineName string
	uploader   imghost.Uploader // nil disables hosting

	maxImageBytes int64
	timeout       time.Duration
	mobileTimeout time.Duration
}

type Options struct {
	Engines    *vision.Engines
	EngineName string
	Uploader   imghost.Uploader

	MaxImageBytes int64
	Timeout       time.Duration
	MobileTimeout time.Duration
}

func New(opts Options) *Handle {
	h := &Handle{
		engs:          opts.Engines,
		engineName:    opts.EngineName,
		uploader:      opts.Uploader,
		maxImageBytes: opts.MaxImageBytes,
		timeout:       opts.Timeout,
		mobileTimeout: opts.MobileTimeout,
	}
	if h.engineName == "" {
		h.engineName = "openai"
	}
	if h.maxImageBytes <= 0 {
		h.maxImageBytes = 5 * 1024 * 1024
	}
	if h.timeout <= 0 {
		h.timeout = 60 * time.Second
	}
	if h.mobileTimeout <= 0 {
		h.mobileTimeout = 45 * time.Second
	}
	return h
}

// Register wires the estimation routes onto the engine. CORS is wildcard-open:
// the API is meant to be called straight from browsers anywhere.
func (h *Handle) Register(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization"},
	}))

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	r.POST("/api/estimate-calories", h.EstimateCalories)
	r.POST("/api/direct-estimate", h.DirectEstimate)
	r.POST("/api/mobile-estimate", h.MobileEstimate)
	r.POST("/api/ios-test", h.IOSTest)
}
