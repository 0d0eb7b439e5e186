package rest

import (
	"net/http"

	"github.com/frahmantamala/pos-admin/internal/transport"
)

// POSHandler stands in for the menu, order, branch and settings screens.
// Those features live elsewhere; the routes exist so the gate protecting
// them can be exercised end to end.
type POSHandler struct {
	*transport.BaseHandler
}

func NewPOSHandler(base *transport.BaseHandler) *POSHandler {
	return &POSHandler{BaseHandler: base}
}

type listingResponse struct {
	Area  string        `json:"area"`
	Items []interface{} `json:"items"`
}

func (h *POSHandler) listing(area string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.WriteJSON(w, http.StatusOK, listingResponse{Area: area, Items: []interface{}{}})
	}
}

func (h *POSHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if _, err := h.IDParam(r, "id"); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
