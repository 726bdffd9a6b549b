package handlers

import (
	"net/http"

	saleApp "github.com/cobasjano/JC-sistema-sub001/internal/application/sale"
	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
	"github.com/cobasjano/JC-sistema-sub001/internal/interfaces/http/dto"
	"github.com/cobasjano/JC-sistema-sub001/internal/interfaces/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SaleHandler handles sale-related HTTP requests.
type SaleHandler struct {
	createUC *saleApp.CreateSaleUseCase
	getUC    *saleApp.GetSaleUseCase
	listUC   *saleApp.ListSalesUseCase
}

func NewSaleHandler(
	createUC *saleApp.CreateSaleUseCase,
	getUC *saleApp.GetSaleUseCase,
	listUC *saleApp.ListSalesUseCase,
) *SaleHandler {
	return &SaleHandler{createUC: createUC, getUC: getUC, listUC: listUC}
}

// CreateSale handles POST /api/v1/sales
func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.CreateSaleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	// The sale is always attributed to the token's user.
	if req.ActorID != "" && req.ActorID != p.UserID {
		writeError(w, r, domainErrors.ErrActorMismatch)
		return
	}
	actorID := p.UserID
	posNumber := req.PosNumber
	if posNumber == 0 {
		posNumber = p.PosNumber
	}

	items := make([]saleApp.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, saleApp.ItemInput{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}

	resp, err := h.createUC.Execute(r.Context(), saleApp.CreateSaleRequest{
		IdempotencyKey:   r.Header.Get(middleware.IdempotencyHeader),
		SessionTenantID:  p.TenantID,
		TenantID:         req.TenantID,
		ActorID:          actorID,
		PosNumber:        posNumber,
		Items:            items,
		Total:            req.Total,
		PaymentMethod:    req.PaymentMethod,
		PaymentBreakdown: req.PaymentBreakdown,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, dto.FromSale(resp.Sale))
}

// GetSale handles GET /api/v1/sales/{id}
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid sale id", Code: "invalid_id"})
		return
	}

	s, err := h.getUC.Execute(r.Context(), p.TenantID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromSale(s))
}

// ListSales handles GET /api/v1/sales?limit&offset&pos
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filter := sale.ListFilter{TenantID: p.TenantID, Limit: limit, Offset: offset}
	if r.URL.Query().Has("pos") {
		pos, err := queryInt(r, "pos", 0)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.PosNumber = &pos
	}

	sales, err := h.listUC.Execute(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := dto.SaleListResponse{Sales: make([]*dto.SaleResponse, 0, len(sales)), Limit: limit, Offset: offset}
	for _, s := range sales {
		resp.Sales = append(resp.Sales, dto.FromSale(s))
	}
	writeJSON(w, http.StatusOK, resp)
}
