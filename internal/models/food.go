package models

import (
	"math"
	"time"
)

// Food categories.
const (
	CategoryFruits     = "fruits"
	CategoryVegetables = "vegetables"
	CategoryGrains     = "grains"
	CategoryProtein    = "protein"
	CategoryDairy      = "dairy"
	CategorySnacks     = "snacks"
	CategoryBeverages  = "beverages"
	CategoryOthers     = "others"
)

var categories = map[string]bool{
	CategoryFruits: true, CategoryVegetables: true, CategoryGrains: true, CategoryProtein: true,
	CategoryDairy: true, CategorySnacks: true, CategoryBeverages: true, CategoryOthers: true,
}

// ValidCategory reports whether c is a known food category.
func ValidCategory(c string) bool { return categories[c] }

// Food sources.
const (
	SourceSystem        = "system"
	SourceUser          = "user"
	SourceOpenFoodFacts = "openfoodfacts"
)

// Food is a catalogue entry. Nutrition is per ServingSize.
type Food struct {
	ID             string      `json:"id" yaml:"id,omitempty"`
	Name           string      `json:"name" yaml:"name"`
	NameIndonesian string      `json:"nameIndonesian" yaml:"nameIndonesian"`
	Category       string      `json:"category" yaml:"category"`
	Nutrition      Nutrition   `json:"nutrition" yaml:"nutrition"`
	ServingSize    ServingSize `json:"servingSize" yaml:"servingSize"`
	Barcode        string      `json:"barcode,omitempty" yaml:"barcode,omitempty"`
	ImageURL       string      `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	IsVerified     bool        `json:"isVerified" yaml:"isVerified"`
	Source         string      `json:"source" yaml:"source"`
	CreatedBy      string      `json:"createdBy,omitempty" yaml:"-"`
	CreatedAt      time.Time   `json:"createdAt" yaml:"-"`
	UpdatedAt      time.Time   `json:"updatedAt" yaml:"-"`
}

// Nutrition values. Calories in kcal, sodium in mg, the rest in grams.
type Nutrition struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
	Carbs    float64 `json:"carbs" yaml:"carbs"`
	Fat      float64 `json:"fat" yaml:"fat"`
	Fiber    float64 `json:"fiber" yaml:"fiber"`
	Sugar    float64 `json:"sugar" yaml:"sugar"`
	Sodium   float64 `json:"sodium" yaml:"sodium"`
}

// Scale multiplies every value by portion, rounded to two decimals.
func (n Nutrition) Scale(portion float64) Nutrition {
	return Nutrition{
		Calories: n.Calories * portion,
		Protein:  n.Protein * portion,
		Carbs:    n.Carbs * portion,
		Fat:      n.Fat * portion,
		Fiber:    n.Fiber * portion,
		Sugar:    n.Sugar * portion,
		Sodium:   n.Sodium * portion,
	}.Rounded()
}

// Rounded returns n with every value rounded to two decimals.
func (n Nutrition) Rounded() Nutrition {
	return Nutrition{
		Calories: round2(n.Calories),
		Protein:  round2(n.Protein),
		Carbs:    round2(n.Carbs),
		Fat:      round2(n.Fat),
		Fiber:    round2(n.Fiber),
		Sugar:    round2(n.Sugar),
		Sodium:   round2(n.Sodium),
	}
}

// Add returns the element-wise sum of n and o.
func (n Nutrition) Add(o Nutrition) Nutrition {
	return Nutrition{
		Calories: n.Calories + o.Calories,
		Protein:  n.Protein + o.Protein,
		Carbs:    n.Carbs + o.Carbs,
		Fat:      n.Fat + o.Fat,
		Fiber:    n.Fiber + o.Fiber,
		Sugar:    n.Sugar + o.Sugar,
		Sodium:   n.Sodium + o.Sodium,
	}
}

// Negative reports whether any value is below zero.
func (n Nutrition) Negative() bool {
	return n.Calories < 0 || n.Protein < 0 || n.Carbs < 0 || n.Fat < 0 ||
		n.Fiber < 0 || n.Sugar < 0 || n.Sodium < 0
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

type ServingSize struct {
	Amount float64 `json:"amount" yaml:"amount"`
	Unit   string  `json:"unit" yaml:"unit"` // g, ml, piece, cup
}

// FoodSearchRequest holds the query parameters of GET /foods.
type FoodSearchRequest struct {
	Query    string
	Category string
	Limit    int
	Offset   int
}

type CreateFoodRequest struct {
	Name           string      `json:"name"`
	NameIndonesian string      `json:"nameIndonesian"`
	Category       string      `json:"category"`
	Nutrition      Nutrition   `json:"nutrition"`
	ServingSize    ServingSize `json:"servingSize"`
	Barcode        string      `json:"barcode,omitempty"`
	ImageURL       string      `json:"imageUrl,omitempty"`
}

type FoodSearchResponse struct {
	Foods   []*Food `json:"foods"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
	HasMore bool    `json:"hasMore"`
}

type FoodCategoryResponse struct {
	Category string  `json:"category"`
	Foods    []*Food `json:"foods"`
	Total    int     `json:"total"`
}
