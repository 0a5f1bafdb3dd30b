package handle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"calorie-lens/api/internal/estimate"
	"calorie-lens/api/internal/util"
	"calorie-lens/api/internal/vision"
)

type estimateRequest struct {
	Image string `json:"image"`
}

// EstimateCalories is the primary route: host the photo, then analyze it.
func (h *Handle) EstimateCalories(c *gin.Context) {
	h.estimate(c, true, h.timeout)
}

// DirectEstimate skips hosting and sends the inline base64 to the engine.
func (h *Handle) DirectEstimate(c *gin.Context) {
	h.estimate(c, false, h.timeout)
}

// MobileEstimate is DirectEstimate under the constrained-device timeout.
func (h *Handle) MobileEstimate(c *gin.Context) {
	h.estimate(c, false, h.mobileTimeout)
}

// IOSTest answers a fixed estimation without touching any collaborator.
func (h *Handle) IOSTest(c *gin.Context) {
	data := &estimate.CalorieEstimation{
		Calories: 450,
		FoodItems: []estimate.FoodItem{
			{Name: "Test Food Item", Calories: 450, Portion: "1 serving"},
		},
		Confidence: 0.8,
		ImageURL:   "https://example.com/test-food.jpg",
	}
	c.JSON(http.StatusOK, estimate.Response{Success: true, Data: data})
}

type estimateOutcome struct {
	data *estimate.CalorieEstimation
	err  error
}

func (h *Handle) estimate(c *gin.Context, hostImage bool, timeout time.Duration) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}

	imageB64 := strings.TrimSpace(req.Image)
	if imageB64 == "" {
		fail(c, http.StatusBadRequest, "image is required")
		return
	}

	raw, hint, err := util.DecodeBase64Image(imageB64)
	if err != nil || len(raw) == 0 {
		fail(c, http.StatusBadRequest, "image is not valid base64")
		return
	}
	if int64(len(raw)) > h.maxImageBytes {
		fail(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("image is too large: %d bytes, limit %d", len(raw), h.maxImageBytes))
		return
	}

	engine, err := h.engs.GetEngine(h.engineName)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	// The external sequence races the deadline. When the race is lost the
	// in-flight call keeps running; the caller just gets a 408 instead of a
	// hung request.
	ch := make(chan estimateOutcome, 1)
	go func() {
		ch <- h.analyze(ctx, engine, hostImage, imageB64, hint, raw)
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			log.Printf("estimate failed: %v", out.err)
			fail(c, statusFor(out.err), out.err.Error())
			return
		}
		c.JSON(http.StatusOK, estimate.Response{Success: true, Data: out.data})
	case <-ctx.Done():
		fail(c, http.StatusRequestTimeout, "analysis timed out")
	}
}

func (h *Handle) analyze(ctx context.Context, engine vision.Engine, hostImage bool, imageB64, hint string, raw []byte) estimateOutcome {
	in := vision.AnalyzeInput{ImageB64: imageB64}
	imageURL := util.MakeDataURL(util.PickMIME(hint, raw), stripDataPrefix(imageB64))

	if hostImage && h.uploader != nil {
		hosted, err := h.uploader.Upload(ctx, imageB64)
		if err != nil {
			return estimateOutcome{err: fmt.Errorf("image hosting: %w", err)}
		}
		in.ImageURL = hosted
		imageURL = hosted
	}

	data, err := engine.Analyze(ctx, in)
	if err != nil {
		return estimateOutcome{err: fmt.Errorf("vision analysis: %w", err)}
	}

	data.ImageURL = imageURL
	if err := data.Validate(); err != nil {
		return estimateOutcome{err: fmt.Errorf("vision analysis: invalid result: %w", err)}
	}
	return estimateOutcome{data: &data}
}

func stripDataPrefix(s string) string {
	if strings.HasPrefix(s, "data:") {
		if idx := strings.IndexByte(s, ','); idx > 0 {
			return s[idx+1:]
		}
	}
	return s
}

func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, estimate.Response{Success: false, Error: msg})
}
