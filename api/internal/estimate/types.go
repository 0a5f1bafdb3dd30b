package estimate

import (
	"fmt"
)

// FoodItem is one detected item on the photo.
type FoodItem struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Portion  string  `json:"portion"`
}

// CalorieEstimation is the normalized answer for a single photo. It lives for
// one request/response cycle only; nothing server-side holds on to it.
type CalorieEstimation struct {
	Calories   float64    `json:"calories"`
	FoodItems  []FoodItem `json:"foodItems"`
	Confidence float64    `json:"confidence"`
	ImageURL   string     `json:"imageUrl"`
}

// Response is the envelope every route returns. Exactly one of Data/Error is
// meaningful.
type Response struct {
	Success bool               `json:"success"`
	Data    *CalorieEstimation `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Validate checks the schema invariants the caller may rely on after a
// successful estimate.
func (e *CalorieEstimation) Validate() error {
	if e.Calories < 0 {
		return fmt.Errorf("calories must be >= 0, got %v", e.Calories)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0,1], got %v", e.Confidence)
	}
	if len(e.FoodItems) == 0 {
		return fmt.Errorf("no food items detected")
	}
	for _, it := range e.FoodItems {
		if it.Name == "" {
			return fmt.Errorf("food item with empty name")
		}
		if it.Calories < 0 {
			return fmt.Errorf("food item %q: calories must be >= 0", it.Name)
		}
	}
	return nil
}
