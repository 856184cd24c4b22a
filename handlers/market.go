package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rainbowsvgs/spectra/market"
	"github.com/rainbowsvgs/spectra/services"
	"github.com/rainbowsvgs/spectra/templates"
	"github.com/rainbowsvgs/spectra/types/models"
	"github.com/rainbowsvgs/spectra/utils"
)

// Market will return the "market" page using a go template
func Market(w http.ResponseWriter, r *http.Request) {
	var marketTemplateFiles = append(layoutTemplateFiles,
		"market/market.html",
	)

	var pageTemplate = templates.GetTemplate(marketTemplateFiles...)
	data := InitPageData(w, r, "market", "/market", "Market", marketTemplateFiles)

	currentWallet := getCurrentWallet(w, r)
	filterInput := r.URL.Query().Get("filter")

	var pageError error
	data.Data, pageError = getMarketPageData(currentWallet, filterInput)
	if pageError != nil {
		handlePageError(w, r, pageError)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if handleTemplateError(w, r, "market.go", "Market", "", pageTemplate.ExecuteTemplate(w, "layout", data)) != nil {
		return // an error has occurred and was processed
	}
}

// GetMarketData exposes the market page model for the json api.
func GetMarketData(currentWallet, filterInput string) (*models.MarketPageData, error) {
	return getMarketPageData(currentWallet, filterInput)
}

func getMarketPageData(currentWallet, filterInput string) (*models.MarketPageData, error) {
	pageData := &models.MarketPageData{}
	pageCacheKey := fmt.Sprintf("market:%v:%v", currentWallet, filterInput)
	pageRes, pageErr := services.GlobalFrontendCache.ProcessCachedPage(pageCacheKey, true, pageData, func(pageCall *services.FrontendCacheProcessingPage) interface{} {
		pageData, cacheTimeout := buildMarketPageData(currentWallet, filterInput)
		pageCall.CacheTimeout = cacheTimeout
		return pageData
	})
	if pageErr == nil && pageRes != nil {
		resData, resOk := pageRes.(*models.MarketPageData)
		if !resOk {
			return nil, InvalidPageModelError
		}
		pageData = resData
	}
	return pageData, pageErr
}

func buildMarketPageData(currentWallet, filterInput string) (*models.MarketPageData, time.Duration) {
	logrus.Debugf("market page called")

	marketService := services.GlobalMarketService
	snapshot := marketService.GetSnapshot()
	if snapshot == nil {
		return &models.MarketPageData{
			FilterInput: filterInput,
			WalletNames: marketService.GetWalletNames(),
			TokenSymbol: utils.Config.Chain.Config.TokenSymbol,
		}, 1 * time.Second
	}

	var currentUser *common.Address
	if currentWallet != "" {
		walletAddr, err := marketService.GetWalletAddress(currentWallet)
		if err == nil {
			currentUser = &walletAddr
		} else {
			currentWallet = ""
		}
	}

	viewInput := marketService.BuildViewInput(snapshot, currentUser)
	viewItems := market.BuildMarketView(&viewInput)

	totalTokens := utils.Config.Chain.Config.CollectionSize
	filterResult := market.ParseTokenFilter(filterInput, totalTokens)

	pageData := &models.MarketPageData{
		Items:         make([]*models.MarketPageItem, 0, len(viewItems)),
		TotalTokens:   totalTokens,
		FilterInput:   filterInput,
		FilterApplied: !filterResult.Cleared,
		CurrentWallet: currentWallet,
		WalletNames:   marketService.GetWalletNames(),
		TokenSymbol:   utils.Config.Chain.Config.TokenSymbol,

		SnapshotHeight: snapshot.HeadNumber,
		SnapshotTime:   uint64(snapshot.Updated.Unix()),
	}

	for _, diagnostic := range filterResult.Diagnostics {
		pageData.FilterWarnings = append(pageData.FilterWarnings, fmt.Sprintf("%v: %v", diagnostic.Input, diagnostic.Reason))
	}

	filterSet := map[market.TokenId]bool{}
	for _, id := range filterResult.Tokens {
		filterSet[id] = true
	}

	for _, item := range viewItems {
		if item.IsActive {
			pageData.ActiveListings++
		}

		if !filterResult.Cleared && !filterSet[item.TokenId] {
			continue
		}

		pageItem := &models.MarketPageItem{
			TokenId:   uint64(item.TokenId),
			Color:     item.Color,
			IsActive:  item.IsActive,
			PriceText: item.PriceText,
			BidText:   item.BidText,
			Owned:     item.Owned,

			CanOffer:         item.Actions.CanOffer,
			CanCancelOffer:   item.Actions.CanCancelOffer,
			CanBuy:           item.Actions.CanBuy,
			CanList:          item.Actions.CanList,
			CanCancelListing: item.Actions.CanCancelListing,
			CanAcceptOffer:   item.Actions.CanAcceptOffer,
		}

		if item.IsActive {
			pageItem.Seller = item.Seller.Hex()
			if item.Price != nil {
				pageItem.PriceWei = item.Price.String()
			}
		}

		if item.Offer != nil {
			pageItem.Bidder = item.Offer.Bidder.Hex()
			if item.Offer.Amount != nil {
				pageItem.BidWei = item.Offer.Amount.String()
			}
		}

		if services.GlobalTxService != nil {
			_, pageItem.InFlight = services.GlobalTxService.GetInflightAction(item.TokenId)
		}

		pageData.Items = append(pageData.Items, pageItem)
	}

	pageData.FilterMatches = uint64(len(pageData.Items))

	return pageData, 12 * time.Second
}
