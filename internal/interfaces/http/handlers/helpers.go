package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/interfaces/http/dto"
	"github.com/cobasjano/JC-sistema-sub001/internal/interfaces/http/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrSaleNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrProductNotFound, http.StatusUnprocessableEntity, "product_not_found"},
	{domainErrors.ErrSaleWithoutItems, http.StatusBadRequest, "validation_error"},
	{domainErrors.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{domainErrors.ErrInvalidPrice, http.StatusBadRequest, "invalid_price"},
	{domainErrors.ErrInvalidTotal, http.StatusBadRequest, "invalid_total"},
	{domainErrors.ErrInvalidStock, http.StatusBadRequest, "invalid_stock"},
	{domainErrors.ErrInvalidPosNumber, http.StatusBadRequest, "invalid_pos_number"},
	{domainErrors.ErrDuplicateSaleItem, http.StatusBadRequest, "duplicate_item"},
	{domainErrors.ErrTenantMismatch, http.StatusForbidden, "tenant_mismatch"},
	{domainErrors.ErrActorMismatch, http.StatusForbidden, "actor_mismatch"},
	{domainErrors.ErrDuplicateIdempotencyKey, http.StatusConflict, "duplicate_request"},
	{domainErrors.ErrLockAcquisitionFailed, http.StatusConflict, "request_in_progress"},
	{domainErrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domainErrors.ErrForbidden, http.StatusForbidden, "forbidden"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := dto.ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Namespace(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}

func principal(r *http.Request) (middleware.Principal, error) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		return middleware.Principal{}, domainErrors.ErrUnauthorized
	}
	return p, nil
}

// queryInt reads a non-negative integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, domainErrors.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}
