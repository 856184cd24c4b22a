package api

import (
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rainbowsvgs/spectra/handlers/middleware"
	"github.com/rainbowsvgs/spectra/market"
	"github.com/rainbowsvgs/spectra/services"
	"github.com/rainbowsvgs/spectra/utils"
)

// APITxRequest is the request body of a marketplace mutation
type APITxRequest struct {
	Wallet  string `json:"wallet"`
	TokenId uint64 `json:"tokenId"`
	Amount  string `json:"amount,omitempty"`
}

// APITx submits a marketplace transaction with a configured signing
// wallet and blocks until the receipt lands. Mutations cost more rate
// limit budget than reads and always require an auth token with tx
// permission when auth is enabled.
func APITx(w http.ResponseWriter, r *http.Request) {
	if !checkCallLimit(w, r, 10) {
		return
	}

	tokenInfo := middleware.GetTokenInfo(r)
	if utils.Config.Api.RequireAuth && (tokenInfo == nil || !tokenInfo.AllowTx) {
		middleware.APIErrorResponse(w, http.StatusForbidden, "ERROR: token not valid for transactions")
		return
	}

	vars := mux.Vars(r)
	action := services.TxAction(vars["action"])

	var request APITxRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		middleware.APIErrorResponse(w, http.StatusBadRequest, "ERROR: invalid request body")
		return
	}

	if request.Wallet == "" {
		middleware.APIErrorResponse(w, http.StatusBadRequest, "ERROR: missing wallet")
		return
	}

	amount, err := parseTxAmount(request.Amount)
	if err != nil {
		middleware.APIErrorResponse(w, http.StatusBadRequest, "ERROR: invalid amount")
		return
	}

	result, err := services.GlobalTxService.ExecuteAction(r.Context(), request.Wallet, action, market.TokenId(request.TokenId), amount)
	if err != nil {
		if err == services.ErrTokenBusy {
			middleware.APIErrorResponse(w, http.StatusConflict, "ERROR: token has a transaction in flight")
			return
		}

		logger.WithError(err).WithField("action", action).Warn("transaction failed")
		middleware.APIErrorResponse(w, http.StatusBadGateway, "ERROR: "+utils.TruncateError(err, 200))
		return
	}

	writeJSONResponse(w, result)
}

// parseTxAmount accepts a decimal eth amount or an empty string.
func parseTxAmount(amount string) (*big.Int, error) {
	if amount == "" {
		return nil, nil
	}

	return utils.ParseEthToWei(amount)
}
