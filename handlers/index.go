package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rainbowsvgs/spectra/market"
	"github.com/rainbowsvgs/spectra/services"
	"github.com/rainbowsvgs/spectra/templates"
	"github.com/rainbowsvgs/spectra/types/models"
	"github.com/rainbowsvgs/spectra/utils"
)

// Index will return the main "claim" page using a go template
func Index(w http.ResponseWriter, r *http.Request) {
	var indexTemplateFiles = append(layoutTemplateFiles,
		"index/index.html",
	)

	var pageTemplate = templates.GetTemplate(indexTemplateFiles...)
	data := InitPageData(w, r, "claim", "/", "Claim", indexTemplateFiles)

	currentWallet := getCurrentWallet(w, r)
	filterInput := r.URL.Query().Get("filter")

	var pageError error
	data.Data, pageError = getIndexPageData(currentWallet, filterInput)
	if pageError != nil {
		handlePageError(w, r, pageError)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if handleTemplateError(w, r, "index.go", "Index", "", pageTemplate.ExecuteTemplate(w, "layout", data)) != nil {
		return // an error has occurred and was processed
	}
}

// GetClaimData exposes the claim page model for the json api.
func GetClaimData(currentWallet, filterInput string) (*models.ClaimPageData, error) {
	return getIndexPageData(currentWallet, filterInput)
}

func getIndexPageData(currentWallet, filterInput string) (*models.ClaimPageData, error) {
	pageData := &models.ClaimPageData{}
	pageCacheKey := fmt.Sprintf("index:%v:%v", currentWallet, filterInput)
	pageRes, pageErr := services.GlobalFrontendCache.ProcessCachedPage(pageCacheKey, true, pageData, func(pageCall *services.FrontendCacheProcessingPage) interface{} {
		pageData, cacheTimeout := buildIndexPageData(currentWallet, filterInput)
		pageCall.CacheTimeout = cacheTimeout
		return pageData
	})
	if pageErr == nil && pageRes != nil {
		resData, resOk := pageRes.(*models.ClaimPageData)
		if !resOk {
			return nil, InvalidPageModelError
		}
		pageData = resData
	}
	return pageData, pageErr
}

func buildIndexPageData(currentWallet, filterInput string) (*models.ClaimPageData, time.Duration) {
	logrus.Debugf("claim page called")

	marketService := services.GlobalMarketService
	snapshot := marketService.GetSnapshot()
	if snapshot == nil {
		return &models.ClaimPageData{
			FilterInput: filterInput,
			WalletNames: marketService.GetWalletNames(),
		}, 1 * time.Second
	}

	totalTokens := utils.Config.Chain.Config.CollectionSize
	unmintedIds := marketService.GetUnmintedTokenIds(snapshot)
	claimItems := market.BuildClaimView(snapshot.Universe, unmintedIds, totalTokens)

	filterResult := market.ParseTokenFilter(filterInput, totalTokens)
	filterSet := map[market.TokenId]bool{}
	for _, id := range filterResult.Tokens {
		filterSet[id] = true
	}

	pageData := &models.ClaimPageData{
		Tokens:         make([]*models.ClaimPageToken, 0, len(claimItems)),
		TotalTokens:    totalTokens,
		MintedCount:    totalTokens - uint64(len(unmintedIds)),
		FilterInput:    filterInput,
		FilterApplied:  !filterResult.Cleared,
		CurrentWallet:  currentWallet,
		WalletNames:    marketService.GetWalletNames(),
		SnapshotHeight: snapshot.HeadNumber,
		SnapshotTime:   uint64(snapshot.Updated.Unix()),
	}

	for _, diagnostic := range filterResult.Diagnostics {
		pageData.FilterWarnings = append(pageData.FilterWarnings, fmt.Sprintf("%v: %v", diagnostic.Input, diagnostic.Reason))
	}

	for _, item := range claimItems {
		pageData.AllClaimed = item.AllClaimed

		if !filterResult.Cleared && !filterSet[item.TokenId] {
			continue
		}

		pageData.Tokens = append(pageData.Tokens, &models.ClaimPageToken{
			TokenId: uint64(item.TokenId),
			Color:   item.Color,
			Claimed: item.Claimed,
		})
	}

	pageData.FilterMatches = uint64(len(pageData.Tokens))

	return pageData, 12 * time.Second
}
