// Package pricing отдаёт каталог тарифов.
package pricing

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/models"
)

// Catalog возвращает тарифы.
type Catalog interface {
	Plans() []models.Plan
}

// PlanView — тариф с ценой в основных единицах валюты.
type PlanView struct {
	models.Plan
	Amount float64 `json:"amount"`
}

// Handler обрабатывает GET /api/pricing.
type Handler struct {
	catalog Catalog
}

// New создаёт обработчик.
func New(catalog Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// ServeHTTP godoc
// @Summary Каталог тарифов
// @Tags Billing
// @Produce json
// @Success 200 {object} response.Response
// @Router /pricing [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	plans := h.catalog.Plans()
	out := make([]PlanView, 0, len(plans))
	for _, p := range plans {
		out = append(out, PlanView{Plan: p, Amount: models.MajorUnits(p.Price)})
	}
	render.JSON(w, r, response.OKWithData(out))
}
