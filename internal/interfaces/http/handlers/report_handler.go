package handlers

import (
	"net/http"

	"github.com/cobasjano/JC-sistema-sub001/internal/application/report"
	"github.com/cobasjano/JC-sistema-sub001/internal/interfaces/http/dto"
)

type ReportHandler struct {
	topUC *report.TopProductsUseCase
}

func NewReportHandler(topUC *report.TopProductsUseCase) *ReportHandler {
	return &ReportHandler{topUC: topUC}
}

// TopProducts handles GET /api/v1/reports/top-products?limit
func (h *ReportHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ranks, err := h.topUC.Execute(r.Context(), p.TenantID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromRanking(ranks))
}
