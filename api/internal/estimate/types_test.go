package estimate

import (
	"errors"
	"testing"
)

func validEstimation() CalorieEstimation {
	return CalorieEstimation{
		Calories: 450,
		FoodItems: []FoodItem{
			{Name: "Test Food Item", Calories: 450, Portion: "1 serving"},
		},
		Confidence: 0.8,
		ImageURL:   "https://example.com/x.jpg",
	}
}

func TestValidate_OK(t *testing.T) {
	e := validEstimation()
	if err := e.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CalorieEstimation)
	}{
		{"negative total", func(e *CalorieEstimation) { e.Calories = -1 }},
		{"confidence above 1", func(e *CalorieEstimation) { e.Confidence = 1.5 }},
		{"confidence below 0", func(e *CalorieEstimation) { e.Confidence = -0.1 }},
		{"no items", func(e *CalorieEstimation) { e.FoodItems = nil }},
		{"item without name", func(e *CalorieEstimation) { e.FoodItems[0].Name = "" }},
		{"item negative calories", func(e *CalorieEstimation) { e.FoodItems[0].Calories = -5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validEstimation()
			tc.mutate(&e)
			if err := e.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestAPIError_Transient(t *testing.T) {
	if !(&APIError{Kind: KindTimeout}).Transient() {
		t.Fatal("timeout should be transient")
	}
	if !(&APIError{Kind: KindUnreachable}).Transient() {
		t.Fatal("unreachable should be transient")
	}
	if (&APIError{Kind: KindServer}).Transient() {
		t.Fatal("server errors are definite, not transient")
	}
}

func TestAPIError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := &APIError{Status: 500, Kind: KindServer, Err: cause}
	if e.Error() != "boom" {
		t.Fatalf("Error() = %q", e.Error())
	}
	if !errors.Is(e, cause) {
		t.Fatal("Unwrap should expose the cause")
	}

	e2 := NewAPIError(408, KindTimeout, "took %ds", 30)
	if e2.Error() != "took 30s" {
		t.Fatalf("Error() = %q", e2.Error())
	}
}
