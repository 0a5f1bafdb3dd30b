package vision

import "calorie-lens/api/internal/estimate"

// ApplyResultPolicy normalizes a raw model answer into something that passes
// estimate.Validate: confidence clamped into [0,1], items with negative
// calories dropped, and the total recomputed from the items when the model
// left it empty or inconsistent with an all-zero breakdown.
func ApplyResultPolicy(est *estimate.CalorieEstimation) {
	if est.Confidence < 0 {
		est.Confidence = 0
	}
	if est.Confidence > 1 {
		est.Confidence = 1
	}

	items := est.FoodItems[:0]
	for _, it := range est.FoodItems {
		if it.Calories < 0 || it.Name == "" {
			continue
		}
		if it.Portion == "" {
			it.Portion = "1 serving"
		}
		items = append(items, it)
	}
	est.FoodItems = items

	if est.Calories <= 0 {
		var sum float64
		for _, it := range est.FoodItems {
			sum += it.Calories
		}
		est.Calories = sum
	}
}
