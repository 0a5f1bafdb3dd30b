package handle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"calorie-lens/api/internal/estimate"
	"calorie-lens/api/internal/vision"
)

type fakeEngine struct {
	calls int32
	est   estimate.CalorieEstimation
	err   error
	delay time.Duration
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Analyze(ctx context.Context, in vision.AnalyzeInput) (estimate.CalorieEstimation, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return estimate.CalorieEstimation{}, ctx.Err()
		}
	}
	return f.est, f.err
}

func (f *fakeEngine) callCount() int32 { return atomic.LoadInt32(&f.calls) }

type fakeUploader struct {
	calls int32
	url   string
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, base64Image string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.url, f.err
}

func fixture() estimate.CalorieEstimation {
	return estimate.CalorieEstimation{
		Calories: 450,
		FoodItems: []estimate.FoodItem{
			{Name: "Test Food Item", Calories: 450, Portion: "1 serving"},
		},
		Confidence: 0.8,
	}
}

func setupRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(opts).Register(r)
	return r
}

func postImage(t *testing.T, r *gin.Engine, path, image string) (*httptest.ResponseRecorder, estimate.Response) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"image": image})
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env estimate.Response
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v; body=%s", err, w.Body.String())
	}
	return w, env
}

func validImageB64() string {
	return base64.StdEncoding.EncodeToString([]byte("tiny test image payload"))
}

func TestEstimate_EmptyImageRejected(t *testing.T) {
	eng := &fakeEngine{est: fixture()}
	r := setupRouter(Options{Engines: &vision.Engines{OpenAI: eng}})

	w, env := postImage(t, r, "/api/estimate-calories", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if env.Success || env.Error == "" {
		t.Fatalf("want failure envelope, got %+v", env)
	}
	if eng.callCount() != 0 {
		t.Fatal("engine must not be called for empty input")
	}
}

func TestEstimate_InvalidBase64Rejected(t *testing.T) {
	eng := &fakeEngine{est: fixture()}
	r := setupRouter(Options{Engines: &vision.Engines{OpenAI: eng}})

	w, env := postImage(t, r, "/api/direct-estimate", "!!! not base64 !!!")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if env.Success {
		t.Fatal("want failure envelope")
	}
	if eng.callCount() != 0 {
		t.Fatal("engine must not be called for invalid input")
	}
}

func TestEstimate_OversizedImageRejected(t *testing.T) {
	eng := &fakeEngine{est: fixture()}
	up := &fakeUploader{url: "https://cdn.example.com/x.jpg"}
	r := setupRouter(Options{
		Engines:       &vision.Engines{OpenAI: eng},
		Uploader:      up,
		MaxImageBytes: 8,
	})

	w, env := postImage(t, r, "/api/estimate-calories", validImageB64())
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
	if env.Success || !strings.Contains(env.Error, "too large") {
		t.Fatalf("want size-limit error, got %+v", env)
	}
	if eng.callCount() != 0 || atomic.LoadInt32(&up.calls) != 0 {
		t.Fatal("no collaborator may be called for oversized input")
	}
}

func TestEstimate_Success(t *testing.T) {
	eng := &fakeEngine{est: fixture()}
	r := setupRouter(Options{Engines: &vision.Engines{OpenAI: eng}})

	w, env := postImage(t, r, "/api/direct-estimate", validImageB64())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", w.Code, w.Body.String())
	}
	if !env.Success || env.Data == nil {
		t.Fatalf("want success envelope, got %+v", env)
	}
	if env.Data.Calories != 450 || env.Data.Confidence != 0.8 {
		t.Fatalf("data = %+v", env.Data)
	}
	if len(env.Data.FoodItems) != 1 || env.Data.FoodItems[0].Name != "Test Food Item" {
		t.Fatalf("items = %+v", env.Data.FoodItems)
	}
	if env.Data.ImageURL == "" {
		t.Fatal("imageUrl must be populated")
	}
}

func TestEstimate_HostedURLWins(t *testing.T) {
	eng := &fakeEngine{est: fixture()}
	up := &fakeUploader{url: "https://cdn.example.com/food/1.jpg"}
	r := setupRouter(Options{Engines: &vision.Engines{OpenAI: eng}, Uploader: up})

	_, env := postImage(t, r, "/api/estimate-calories", validImageB64())
	if !env.Success || env.Data.ImageURL != up.url {
		t.Fatalf("imageUrl = %q, want hosted %q", env.Data.ImageURL, up.url)
	}
	if atomic.LoadInt32(&up.calls) != 1 {
		t.Fatalf("uploader calls = %d, want 1", up.calls)
	}
}

func TestEstimate_DirectRouteSkipsHosting(t *testing.T) {
	eng := &fakeEngine{est: fixture()}
	up := &fakeUploader{url: "https://cdn.example.com/x.jpg"}
	r := setupRouter(Options{Engines: &vision.Engines{OpenAI: eng}, Uploader: up})

	_, env := postImage(t, r, "/api/direct-estimate", validImageB64())
	if !env.Success {
		t.Fatalf("want success, got %+v", env)
	}
	if atomic.LoadInt32(&up.calls) != 0 {
		t.Fatal("direct route must not upload")
	}
	if !strings.HasPrefix(env.Data.ImageURL, "data:") {
		t.Fatalf("imageUrl = %q, want a data-URL", env.Data.ImageURL)
	}
}

func TestEstimate_HostingErrorIsPrefixed(t *testing.T) {
	eng := &fakeEngine{est: fixture()}
	up := &fakeUploader{err: errors.New("bucket gone")}
	r := setupRouter(Options{Engines: &vision.Engines{OpenAI: eng}, Uploader: up})

	w, env := postImage(t, r, "/api/estimate-calories", validImageB64())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.HasPrefix(env.Error, "image hosting:") {
		t.Fatalf("error = %q, want image hosting prefix", env.Error)
	}
	if eng.callCount() != 0 {
		t.Fatal("vision engine must not run after hosting failure")
	}
}

func TestEstimate_VisionErrorIsPrefixed(t *testing.T) {
	eng := &fakeEngine{err: errors.New("model unavailable")}
	r := setupRouter(Options{Engines: &vision.Engines{OpenAI: eng}})

	w, env := postImage(t, r, "/api/direct-estimate", validImageB64())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.HasPrefix(env.Error, "vision analysis:") {
		t.Fatalf("error = %q, want vision analysis prefix", env.Error)
	}
}

func TestEstimate_SlowEngineSurfacesAs408(t *testing.T) {
	eng := &fakeEngine{est: fixture(), delay: 500 * time.Millisecond}
	r := setupRouter(Options{
		Engines: &vision.Engines{OpenAI: eng},
		Timeout: 30 * time.Millisecond,
	})

	w, env := postImage(t, r, "/api/direct-estimate", validImageB64())
	if w.Code != http.StatusRequestTimeout {
		t.Fatalf("status = %d, want 408", w.Code)
	}
	if env.Success {
		t.Fatal("want failure envelope")
	}
}

func TestIOSTest_ReturnsFixture(t *testing.T) {
	r := setupRouter(Options{Engines: &vision.Engines{}})

	w, env := postImage(t, r, "/api/ios-test", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !env.Success || env.Data == nil {
		t.Fatalf("want success envelope, got %+v", env)
	}
	if env.Data.Calories != 450 || env.Data.Confidence != 0.8 || len(env.Data.FoodItems) != 1 {
		t.Fatalf("fixture mismatch: %+v", env.Data)
	}
	if env.Data.ImageURL == "" {
		t.Fatal("fixture imageUrl must be non-empty")
	}
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(Options{Engines: &vision.Engines{}})

	req := httptest.NewRequest(http.MethodOptions, "/api/estimate-calories", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent && w.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
