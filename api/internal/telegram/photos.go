package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calorie-lens/api/internal/compress"
	"calorie-lens/api/internal/store"
)

const cacheMaxAge = 24 * time.Hour

var httpc = &http.Client{Timeout: 60 * time.Second}

func (r *Router) acceptPhoto(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	ph := msg.Photo[len(msg.Photo)-1]

	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: ph.FileID})
	if err != nil {
		r.sendError(cid, fmt.Errorf("could not fetch the photo: %w", err))
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.Bot.Token, file.FilePath)
	imgBytes, err := download(url)
	if err != nil {
		r.sendError(cid, fmt.Errorf("could not download the photo: %w", err))
		return
	}

	r.send(cid, "Got it, analyzing…")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	hash := store.HashImage(imgBytes)
	if r.Repo != nil {
		if row, err := r.Repo.FindByHash(ctx, hash, r.EngineName, r.Model, cacheMaxAge); err == nil {
			r.send(cid, formatEstimation(&row.Estimation)+"\n(cached)")
			return
		}
	}

	imageB64, err := compress.Compress(imgBytes, r.Profile)
	if err != nil {
		r.sendError(cid, fmt.Errorf("could not prepare the photo: %w", err))
		return
	}

	est, err := r.Estimator.Estimate(ctx, imageB64)
	if err != nil {
		r.sendError(cid, err)
		return
	}

	r.send(cid, formatEstimation(est))

	if r.Repo != nil {
		if _, err := r.Repo.Save(ctx, &store.EstimateRow{
			ChatID:     cid,
			ImageHash:  hash,
			Engine:     r.EngineName,
			Model:      r.Model,
			Estimation: *est,
		}); err != nil {
			log.Printf("estimate cache save: %v", err)
		}
	}
}

func download(url string) ([]byte, error) {
	resp, err := httpc.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}
