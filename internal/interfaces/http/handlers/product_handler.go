package handlers

import (
	"errors"
	"net/http"

	inventoryApp "github.com/cobasjano/JC-sistema-sub001/internal/application/inventory"
	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/inventory"
	"github.com/cobasjano/JC-sistema-sub001/internal/interfaces/http/dto"
	"github.com/go-chi/chi/v5"
)

// InventoryHandler serves products and supplier purchases.
type InventoryHandler struct {
	upsertUC   *inventoryApp.UpsertProductUseCase
	getUC      *inventoryApp.GetProductUseCase
	listUC     *inventoryApp.ListProductsUseCase
	purchaseUC *inventoryApp.RecordPurchaseUseCase
}

func NewInventoryHandler(
	upsertUC *inventoryApp.UpsertProductUseCase,
	getUC *inventoryApp.GetProductUseCase,
	listUC *inventoryApp.ListProductsUseCase,
	purchaseUC *inventoryApp.RecordPurchaseUseCase,
) *InventoryHandler {
	return &InventoryHandler{upsertUC: upsertUC, getUC: getUC, listUC: listUC, purchaseUC: purchaseUC}
}

// UpsertProduct handles POST /api/v1/products
func (h *InventoryHandler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.UpsertProductRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	product, err := h.upsertUC.Execute(r.Context(), inventoryApp.UpsertProductRequest{
		TenantID: p.TenantID,
		ID:       req.ID,
		Name:     req.Name,
		Price:    req.Price,
		Stock:    req.Stock,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromProduct(product))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *InventoryHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	product, err := h.getUC.Execute(r.Context(), p.TenantID, chi.URLParam(r, "id"))
	if errors.Is(err, domainErrors.ErrProductNotFound) {
		// unknown product is only 422 when referenced from a sale or purchase
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error(), Code: "not_found"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromProduct(product))
}

// ListProducts handles GET /api/v1/products
func (h *InventoryHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	products, err := h.listUC.Execute(r.Context(), p.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]*dto.ProductResponse, 0, len(products))
	for _, pr := range products {
		resp = append(resp, dto.FromProduct(pr))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RecordPurchase handles POST /api/v1/purchases
func (h *InventoryHandler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.RecordPurchaseRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]inventory.PurchaseItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, inventory.PurchaseItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitCost: it.UnitCost})
	}
	purchase, err := h.purchaseUC.Execute(r.Context(), inventoryApp.RecordPurchaseRequest{
		TenantID: p.TenantID,
		ActorID:  p.UserID,
		Supplier: req.Supplier,
		Items:    items,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromPurchase(purchase))
}
