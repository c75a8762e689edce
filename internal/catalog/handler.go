package catalog

import (
	"log/slog"
	"net/http"

	"github.com/nexusmart/shop/internal/auth"
	"github.com/nexusmart/shop/internal/domain"
	"github.com/nexusmart/shop/internal/respond"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, products, "Products fetched successfully")
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), r.PathValue("productId"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, product, "Product fetched successfully")
}

func (h *Handler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.Caller(w, r, h.logger)
	if !ok {
		return
	}

	var req NewProduct
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), caller.UserID, req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusCreated, product, "Product created successfully")
}

func (h *Handler) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.Caller(w, r, h.logger)
	if !ok {
		return
	}

	var patch domain.ProductPatch
	if err := respond.Decode(r, &patch); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), caller.UserID, r.PathValue("productId"), patch)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, product, "Product updated successfully")
}

func (h *Handler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.Caller(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), caller.UserID, r.PathValue("productId")); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, struct{}{}, "Product deleted successfully")
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	for i := range categories {
		categories[i].OwnerID = ""
	}
	respond.JSON(w, h.logger, http.StatusOK, categories, "Categories fetched successfully")
}

func (h *Handler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.Caller(w, r, h.logger)
	if !ok {
		return
	}

	var req categoryRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), caller.UserID, req.Name)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusCreated, category, "Category created successfully")
}

func (h *Handler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	category, err := h.service.RenameCategory(r.Context(), r.PathValue("categoryId"), req.Name)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, category, "Category updated successfully")
}

func (h *Handler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCategory(r.Context(), r.PathValue("categoryId")); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, struct{}{}, "Category deleted successfully")
}
