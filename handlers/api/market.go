package api

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/rainbowsvgs/spectra/db"
	"github.com/rainbowsvgs/spectra/handlers"
	"github.com/rainbowsvgs/spectra/handlers/middleware"
)

// APIMarket returns the ranked market view as JSON
func APIMarket(w http.ResponseWriter, r *http.Request) {
	if !checkCallLimit(w, r, 1) {
		return
	}

	currentWallet := r.URL.Query().Get("wallet")
	filterInput := r.URL.Query().Get("filter")

	pageData, err := handlers.GetMarketData(currentWallet, filterInput)
	if err != nil {
		logger.WithError(err).Error("failed to build market api response")
		middleware.APIErrorResponse(w, http.StatusInternalServerError, "ERROR: failed to load market data")
		return
	}

	writeJSONResponse(w, pageData)
}

// APIClaim returns the claim grid state as JSON
func APIClaim(w http.ResponseWriter, r *http.Request) {
	if !checkCallLimit(w, r, 1) {
		return
	}

	currentWallet := r.URL.Query().Get("wallet")
	filterInput := r.URL.Query().Get("filter")

	pageData, err := handlers.GetClaimData(currentWallet, filterInput)
	if err != nil {
		logger.WithError(err).Error("failed to build claim api response")
		middleware.APIErrorResponse(w, http.StatusInternalServerError, "ERROR: failed to load claim data")
		return
	}

	writeJSONResponse(w, pageData)
}

// APICollection returns the holdings of an address as JSON
func APICollection(w http.ResponseWriter, r *http.Request) {
	if !checkCallLimit(w, r, 1) {
		return
	}

	vars := mux.Vars(r)
	addressHex := vars["address"]
	if !common.IsHexAddress(addressHex) {
		middleware.APIErrorResponse(w, http.StatusBadRequest, "ERROR: invalid address")
		return
	}

	pageData, err := handlers.GetCollectionData(common.HexToAddress(addressHex))
	if err != nil {
		logger.WithError(err).Error("failed to build collection api response")
		middleware.APIErrorResponse(w, http.StatusInternalServerError, "ERROR: failed to load collection data")
		return
	}

	writeJSONResponse(w, pageData)
}

// APIActivityEntry is one market activity row of the activity endpoint.
type APIActivityEntry struct {
	TokenId   uint64 `json:"tokenId"`
	Kind      string `json:"kind"`
	Actor     string `json:"actor,omitempty"`
	Amount    string `json:"amount,omitempty"`
	FirstSeen uint64 `json:"firstSeen"`
}

// APIActivityResponse is the paged response of the activity endpoint.
type APIActivityResponse struct {
	TotalCount uint64              `json:"totalCount"`
	Entries    []*APIActivityEntry `json:"entries"`
}

// APIActivity returns the persisted market activity log as JSON. The
// log can be filtered by token id and paged via offset/limit.
func APIActivity(w http.ResponseWriter, r *http.Request) {
	if !checkCallLimit(w, r, 1) {
		return
	}

	query := r.URL.Query()

	var tokenId, offset uint64
	var limit uint64 = 50
	if tokenIdStr := query.Get("token"); tokenIdStr != "" {
		parsed, err := strconv.ParseUint(tokenIdStr, 10, 64)
		if err != nil {
			middleware.APIErrorResponse(w, http.StatusBadRequest, "ERROR: invalid token id")
			return
		}
		tokenId = parsed
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, _ = strconv.ParseUint(offsetStr, 10, 64)
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, _ = strconv.ParseUint(limitStr, 10, 32)
		if limit == 0 || limit > 500 {
			limit = 50
		}
	}

	activities, totalCount, err := db.GetMarketActivities(tokenId, offset, uint32(limit))
	if err != nil {
		logger.WithError(err).Error("failed to build activity api response")
		middleware.APIErrorResponse(w, http.StatusInternalServerError, "ERROR: failed to load market activity")
		return
	}

	response := &APIActivityResponse{
		TotalCount: totalCount,
		Entries:    make([]*APIActivityEntry, len(activities)),
	}
	for i, activity := range activities {
		entry := &APIActivityEntry{
			TokenId:   activity.TokenId,
			Kind:      activity.Kind,
			Amount:    activity.Amount,
			FirstSeen: activity.FirstSeen,
		}
		if len(activity.Actor) > 0 {
			entry.Actor = common.BytesToAddress(activity.Actor).Hex()
		}
		response.Entries[i] = entry
	}

	writeJSONResponse(w, response)
}
