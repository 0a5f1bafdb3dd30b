package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calorie-lens/api/internal/config"
	"calorie-lens/api/internal/estimate"
	"calorie-lens/api/internal/store"
)

// Estimator is the fallback-chain client; the bot is just another consumer of
// it.
type Estimator interface {
	Estimate(ctx context.Context, imageB64 string) (*estimate.CalorieEstimation, error)
}

type Router struct {
	Bot       *tgbotapi.BotAPI
	Estimator Estimator
	Profile   config.Profile

	// Repo caches answers by image hash; nil disables caching.
	Repo       *store.EstimateRepo
	EngineName string
	Model      string
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}
	if msg.IsCommand() {
		r.handleCommand(msg)
		return
	}
	if len(msg.Photo) > 0 {
		r.acceptPhoto(msg)
		return
	}
	if strings.TrimSpace(msg.Text) != "" {
		r.send(msg.Chat.ID, "Send me a food photo and I'll estimate the calories.")
	}
}

func (r *Router) handleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start":
		r.send(cid, "Send a food photo — I'll answer with the estimated calories and a per-item breakdown. Commands: /health")
	case "health":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := r.Estimator.Estimate(ctx, ""); err != nil {
			var apiErr *estimate.APIError
			if errors.As(err, &apiErr) && apiErr.Kind == estimate.KindServer {
				// The server answered; an input-validation error still means it is up.
				r.send(cid, "✅ OK: API reachable")
				return
			}
			r.send(cid, "⚠️ API unreachable: "+err.Error())
			return
		}
		r.send(cid, "✅ OK")
	default:
		r.send(cid, "Unknown command")
	}
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("telegram send: %v", err)
	}
}

func (r *Router) sendError(chatID int64, err error) {
	r.send(chatID, "⚠️ "+err.Error())
}

func formatEstimation(est *estimate.CalorieEstimation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🍽 Estimated total: %.0f kcal\n", est.Calories)
	for _, it := range est.FoodItems {
		fmt.Fprintf(&b, "• %s — %.0f kcal (%s)\n", it.Name, it.Calories, it.Portion)
	}
	fmt.Fprintf(&b, "Confidence: %.0f%%", est.Confidence*100)
	return b.String()
}
