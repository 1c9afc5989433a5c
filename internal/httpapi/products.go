package httpapi

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"inventory/api/internal/models"
	"inventory/api/internal/store"

	"github.com/google/uuid"
)

// maxAmount is the largest value the amount column (INTEGER) holds.
const maxAmount = math.MaxInt32

// maxPrice bounds price below the NUMERIC(12, 2) column limit.
const maxPrice = 1e10

var amountTooLarge = fmt.Sprintf("amount must be at most %d", maxAmount)

type productRequest struct {
	ProductName *string  `json:"productName"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Amount      *int     `json:"amount"`
	Price       *float64 `json:"price"`
}

type productUpdatedResponse struct {
	Message string         `json:"message"`
	Product models.Product `json:"product"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listProducts(w, r)
	case http.MethodPost:
		h.RequireUser(h.createProduct)(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleProduct(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getProduct(w, r)
	case http.MethodPut:
		h.RequireUser(h.updateProduct)(w, r)
	case http.MethodDelete:
		h.RequireUser(h.deleteProduct)(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		h.internalError(w, r, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDFromPath(w, r)
	if !ok {
		return
	}
	product, err := h.products.GetProduct(r.Context(), productID)
	if err != nil {
		h.writeProductError(w, r, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, problems := req.toInput()
	if len(problems) > 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", strings.Join(problems, "; "))
		return
	}

	product, err := h.products.CreateProduct(r.Context(), input)
	if err != nil {
		h.internalError(w, r, "create product", err)
		return
	}
	if user, ok := userFromContext(r.Context()); ok {
		h.logger.InfoContext(r.Context(), "product created", "product_id", product.ProductID, "user_id", user.UserID)
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDFromPath(w, r)
	if !ok {
		return
	}

	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch, problems := req.toPatch()
	if len(problems) > 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", strings.Join(problems, "; "))
		return
	}

	product, err := h.products.UpdateProduct(r.Context(), productID, patch)
	if err != nil {
		h.writeProductError(w, r, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, productUpdatedResponse{Message: "product updated", Product: product})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDFromPath(w, r)
	if !ok {
		return
	}
	if err := h.products.DeleteProduct(r.Context(), productID); err != nil {
		h.writeProductError(w, r, "delete product", err)
		return
	}
	if user, ok := userFromContext(r.Context()); ok {
		h.logger.InfoContext(r.Context(), "product deleted", "product_id", productID, "user_id", user.UserID)
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "product deleted"})
}

func (h *Handler) writeProductError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	switch {
	case errors.Is(err, store.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "not_found", "product not found")
	case errors.Is(err, store.ErrEmptyUpdate):
		writeError(w, http.StatusBadRequest, "invalid_request", "no updates given")
	default:
		h.internalError(w, r, operation, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	h.logger.ErrorContext(r.Context(), "request failed", "operation", operation, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func productIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	productID := r.PathValue("id")
	if _, err := uuid.Parse(productID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid id format")
		return "", false
	}
	return productID, true
}

func (req productRequest) toInput() (store.ProductInput, []string) {
	var problems []string
	input := store.ProductInput{
		ProductName: trimmed(req.ProductName),
		Description: trimmed(req.Description),
		Category:    trimmed(req.Category),
	}
	if input.ProductName == "" {
		problems = append(problems, "productName is required")
	}
	if input.Category == "" {
		problems = append(problems, "category is required")
	}
	switch {
	case req.Amount == nil || *req.Amount < 0:
		problems = append(problems, "amount must be zero or more")
	case *req.Amount > maxAmount:
		problems = append(problems, amountTooLarge)
	default:
		input.Amount = *req.Amount
	}
	switch {
	case req.Price == nil || *req.Price < 0:
		problems = append(problems, "price must be zero or more")
	case *req.Price >= maxPrice:
		problems = append(problems, "price must be less than 10000000000")
	default:
		input.Price = *req.Price
	}
	return input, problems
}

// toPatch keeps only non-empty strings; out-of-range numbers are rejected.
func (req productRequest) toPatch() (store.ProductPatch, []string) {
	var patch store.ProductPatch
	var problems []string
	if value := trimmed(req.ProductName); value != "" {
		patch.ProductName = &value
	}
	if value := trimmed(req.Description); value != "" {
		patch.Description = &value
	}
	if value := trimmed(req.Category); value != "" {
		patch.Category = &value
	}
	if req.Amount != nil {
		switch {
		case *req.Amount < 0:
			problems = append(problems, "amount must be zero or more")
		case *req.Amount > maxAmount:
			problems = append(problems, amountTooLarge)
		default:
			patch.Amount = req.Amount
		}
	}
	if req.Price != nil {
		switch {
		case *req.Price < 0:
			problems = append(problems, "price must be zero or more")
		case *req.Price >= maxPrice:
			problems = append(problems, "price must be less than 10000000000")
		default:
			patch.Price = req.Price
		}
	}
	return patch, problems
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
