package httpapi

import (
	"net/http"
	"strconv"

	"kasirharian/backend/internal/domain"
)

func (a *API) handleVATCalculate(w http.ResponseWriter, r *http.Request) {
	var req domain.VATCalculateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	calc, err := a.service.ComputeVAT(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

func (a *API) handleVATCart(w http.ResponseWriter, r *http.Request) {
	var req domain.CartVATRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	calc, err := a.service.ComputeCartVAT(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

func (a *API) handleListVATConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := a.service.ListVATConfigs(r.Context(), r.URL.Query().Get("store_id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": configs})
}

func (a *API) handleUpsertVATConfig(w http.ResponseWriter, r *http.Request) {
	var req domain.VATConfigUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := a.service.UpsertVATConfig(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
}

func (a *API) handleStoreDefaultVAT(w http.ResponseWriter, r *http.Request) {
	var req domain.StoreDefaultVATRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settings, err := a.service.SetStoreDefaultVAT(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (a *API) handleDiscountCalculate(w http.ResponseWriter, r *http.Request) {
	var req domain.DiscountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.ComputeDiscount(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListPromotions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	activeOnly, _ := strconv.ParseBool(query.Get("active"))

	promos, err := a.service.ListPromotions(r.Context(), query.Get("store_id"), activeOnly)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"promotions": promos})
}

func (a *API) handleCreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req domain.PromotionCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	promo, err := a.service.CreatePromotion(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"promotion": promo})
}
