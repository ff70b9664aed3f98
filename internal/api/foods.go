package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/harrylevesque/nutritrack/internal/auth"
	"github.com/harrylevesque/nutritrack/internal/models"
	"github.com/harrylevesque/nutritrack/internal/storage"
)

const (
	defaultFoodLimit     = 20
	maxFoodLimit         = 100
	categoryListingLimit = 50
)

var servingUnits = map[string]bool{"g": true, "ml": true, "piece": true, "cup": true}

var errFoodNotFound = newError(http.StatusNotFound, "food not found")

func (s *Server) countLookup(kind string, found bool) {
	if s.metrics != nil {
		s.metrics.FoodLookup(kind, found)
	}
}

// SearchFoodsHandler serves GET /foods?q=&category=&limit=&offset=.
func (s *Server) SearchFoodsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.FoodSearchRequest{Query: strings.TrimSpace(q.Get("q")), Category: q.Get("category")}
	if req.Category != "" && !models.ValidCategory(req.Category) {
		s.writeError(w, r, badRequest("unknown category %q", req.Category))
		return
	}
	var err error
	if req.Limit, err = queryInt(r, "limit", defaultFoodLimit, 1, maxFoodLimit); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Offset, err = queryInt(r, "offset", 0, 0, 0); err != nil {
		s.writeError(w, r, err)
		return
	}

	foods, total, err := s.store.SearchFoods(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.countLookup("search", len(foods) > 0)
	writeJSON(w, http.StatusOK, models.FoodSearchResponse{
		Foods:   foods,
		Total:   total,
		Limit:   req.Limit,
		Offset:  req.Offset,
		HasMore: req.Offset+len(foods) < total,
	})
}

func (s *Server) GetFoodHandler(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.GetFood(r.Context(), mux.Vars(r)["id"])
	s.countLookup("id", err == nil)
	if errors.Is(err, storage.ErrNotFound) {
		err = errFoodNotFound
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// FoodByBarcodeHandler resolves a scanned GTIN.
func (s *Server) FoodByBarcodeHandler(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["barcode"]
	if !ValidGTIN(code) {
		s.writeError(w, r, badRequest("invalid barcode %q", code))
		return
	}
	f, err := s.store.GetFoodByBarcode(r.Context(), code)
	s.countLookup("barcode", err == nil)
	if errors.Is(err, storage.ErrNotFound) {
		err = newError(http.StatusNotFound, "no food with barcode %s", code)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) FoodsByCategoryHandler(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	if !models.ValidCategory(category) {
		s.writeError(w, r, badRequest("unknown category %q", category))
		return
	}
	foods, err := s.store.FoodsByCategory(r.Context(), category, categoryListingLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.countLookup("category", len(foods) > 0)
	writeJSON(w, http.StatusOK, models.FoodCategoryResponse{Category: category, Foods: foods, Total: len(foods)})
}

func validateFood(req *models.CreateFoodRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.NameIndonesian = strings.TrimSpace(req.NameIndonesian)
	req.Barcode = strings.TrimSpace(req.Barcode)
	switch {
	case req.Name == "":
		return badRequest("name is required")
	case !models.ValidCategory(req.Category):
		return badRequest("unknown category %q", req.Category)
	case req.Nutrition.Negative():
		return badRequest("nutrition values must not be negative")
	case req.ServingSize.Amount <= 0:
		return badRequest("servingSize.amount must be positive")
	case !servingUnits[req.ServingSize.Unit]:
		return badRequest("servingSize.unit must be one of g, ml, piece, cup")
	case req.Barcode != "" && !ValidGTIN(req.Barcode):
		return badRequest("invalid barcode %q", req.Barcode)
	}
	return nil
}

// CreateFoodHandler adds a catalogue entry. Admins add verified system
// foods; everyone else adds unverified user foods.
func (s *Server) CreateFoodHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := auth.UserID(ctx)

	var req models.CreateFoodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateFood(&req); err != nil {
		s.writeError(w, r, err)
		return
	}

	f := &models.Food{
		Name:           req.Name,
		NameIndonesian: req.NameIndonesian,
		Category:       req.Category,
		Nutrition:      req.Nutrition,
		ServingSize:    req.ServingSize,
		Barcode:        req.Barcode,
		ImageURL:       req.ImageURL,
		Source:         models.SourceUser,
		CreatedBy:      uid,
	}
	if s.auth.IsAdmin(ctx, uid) {
		f.Source = models.SourceSystem
		f.IsVerified = true
	}
	if err := s.store.CreateFood(ctx, f); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			err = newError(http.StatusConflict, "a food with barcode %s already exists", f.Barcode)
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// editableFood loads a food the caller may change: admins may change any
// food, others only their own.
func (s *Server) editableFood(r *http.Request) (*models.Food, error) {
	ctx := r.Context()
	uid := auth.UserID(ctx)
	f, err := s.store.GetFood(ctx, mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errFoodNotFound
	}
	if err != nil {
		return nil, err
	}
	if f.CreatedBy != uid && !s.auth.IsAdmin(ctx, uid) {
		return nil, newError(http.StatusForbidden, "only the creator or an admin may modify this food")
	}
	return f, nil
}

func (s *Server) UpdateFoodHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFoodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateFood(&req); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.editableFood(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	f.Name = req.Name
	f.NameIndonesian = req.NameIndonesian
	f.Category = req.Category
	f.Nutrition = req.Nutrition
	f.ServingSize = req.ServingSize
	f.Barcode = req.Barcode
	f.ImageURL = req.ImageURL
	if err := s.store.UpdateFood(r.Context(), f); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			err = newError(http.StatusConflict, "a food with barcode %s already exists", f.Barcode)
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) DeleteFoodHandler(w http.ResponseWriter, r *http.Request) {
	f, err := s.editableFood(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteFood(r.Context(), f.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
