package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Warder-Sonic/warder-wallet/internal/registry"
	"github.com/Warder-Sonic/warder-wallet/internal/warderapi"
)

// NewStoreFromRegistry creates a store using the configured claim
// parameters.
func NewStoreFromRegistry(reg *registry.Registry) *Store {
	return NewStore(reg.MinimumClaim, reg.FeeRateBps, reg.Chain.Currency.Decimals)
}

// Router mounts the backing-API endpoints over the store.
func Router(store *Store) *chi.Mux {
	h := &handlers{store: store}

	r := chi.NewRouter()
	r.Get("/api/transactions", h.listTransactions)
	r.Get("/api/users/{address}/balance", h.getBalance)
	r.Post("/api/claim/process", h.processClaim)

	return r
}

type handlers struct {
	store *Store
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (h *handlers) listTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := 1
	if parsed, err := strconv.Atoi(query.Get("page")); err == nil && parsed > 0 {
		page = parsed
	}
	limit := 20
	if parsed, err := strconv.Atoi(query.Get("limit")); err == nil && parsed > 0 && parsed <= 100 {
		limit = parsed
	}

	filters := warderapi.TransactionFilters{
		User: query.Get("user"),
		Dex:  query.Get("dex"),
	}
	if raw := query.Get("processed"); raw != "" {
		processed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "processed must be true or false")
			return
		}
		filters.Processed = &processed
	}

	writeData(w, http.StatusOK, h.store.Transactions(page, limit, filters))
}

func (h *handlers) getBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}
	writeData(w, http.StatusOK, h.store.Balance(address))
}

func (h *handlers) processClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserAddress string `json:"userAddress"`
		Amount      string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserAddress == "" || req.Amount == "" {
		writeError(w, http.StatusBadRequest, "userAddress and amount are required")
		return
	}

	result, err := h.store.ProcessClaim(req.UserAddress, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, http.StatusOK, result)
}
