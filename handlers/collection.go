package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rainbowsvgs/spectra/db"
	"github.com/rainbowsvgs/spectra/market"
	"github.com/rainbowsvgs/spectra/services"
	"github.com/rainbowsvgs/spectra/templates"
	"github.com/rainbowsvgs/spectra/types/models"
	"github.com/rainbowsvgs/spectra/utils"
)

// Collection will return the "collection" page of an address using a go template
func Collection(w http.ResponseWriter, r *http.Request) {
	var collectionTemplateFiles = append(layoutTemplateFiles,
		"collection/collection.html",
	)

	vars := mux.Vars(r)
	addressHex := vars["address"]
	if !common.IsHexAddress(addressHex) {
		NotFound(w, r)
		return
	}

	address := common.HexToAddress(addressHex)

	var pageTemplate = templates.GetTemplate(collectionTemplateFiles...)
	data := InitPageData(w, r, "collection", fmt.Sprintf("/collection/%v", address.Hex()), fmt.Sprintf("Collection %v", utils.FormatAddress(address.Hex())), collectionTemplateFiles)

	var pageError error
	data.Data, pageError = getCollectionPageData(address)
	if pageError != nil {
		handlePageError(w, r, pageError)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if handleTemplateError(w, r, "collection.go", "Collection", "", pageTemplate.ExecuteTemplate(w, "layout", data)) != nil {
		return // an error has occurred and was processed
	}
}

// GetCollectionData exposes the collection page model for the json api.
func GetCollectionData(address common.Address) (*models.CollectionPageData, error) {
	return getCollectionPageData(address)
}

func getCollectionPageData(address common.Address) (*models.CollectionPageData, error) {
	pageData := &models.CollectionPageData{}
	pageCacheKey := fmt.Sprintf("collection:%v", address.Hex())
	pageRes, pageErr := services.GlobalFrontendCache.ProcessCachedPage(pageCacheKey, true, pageData, func(pageCall *services.FrontendCacheProcessingPage) interface{} {
		pageData, cacheTimeout := buildCollectionPageData(address)
		pageCall.CacheTimeout = cacheTimeout
		return pageData
	})
	if pageErr == nil && pageRes != nil {
		resData, resOk := pageRes.(*models.CollectionPageData)
		if !resOk {
			return nil, InvalidPageModelError
		}
		pageData = resData
	}
	return pageData, pageErr
}

func buildCollectionPageData(address common.Address) (*models.CollectionPageData, time.Duration) {
	logrus.Debugf("collection page called: %v", address.Hex())

	marketService := services.GlobalMarketService
	snapshot := marketService.GetSnapshot()
	if snapshot == nil {
		return &models.CollectionPageData{
			Address: address.Hex(),
		}, 1 * time.Second
	}

	totalTokens := utils.Config.Chain.Config.CollectionSize
	tokenIds := marketService.GetTokensOfOwner(snapshot, address)

	pageData := &models.CollectionPageData{
		Address:        address.Hex(),
		Tokens:         make([]*models.CollectionPageToken, 0, len(tokenIds)),
		TokenCount:     uint64(len(tokenIds)),
		SnapshotHeight: snapshot.HeadNumber,
		SnapshotTime:   uint64(snapshot.Updated.Unix()),
	}

	for _, id := range tokenIds {
		token := &models.CollectionPageToken{
			TokenId: uint64(id),
			Color:   market.TokenColor(id, totalTokens),
		}

		if listing, found := snapshot.Listings[id]; found && listing.IsActive {
			token.IsListed = true
			token.PriceText = utils.FormatWeiToEth(listing.Price)
		}
		if offer, found := snapshot.Offers[id]; found {
			token.BidText = utils.FormatWeiToEth(offer.Amount)
		}

		pageData.Tokens = append(pageData.Tokens, token)
	}

	if !utils.Config.Market.DisableActivityLog {
		pageData.Activities = buildAddressActivities(address, totalTokens)
	}

	return pageData, 12 * time.Second
}

func buildAddressActivities(address common.Address, totalTokens uint64) []*models.ActivityEntry {
	activities, err := db.GetLatestMarketActivities(100)
	if err != nil {
		logrus.Warnf("error loading market activities: %v", err)
		return nil
	}

	entries := []*models.ActivityEntry{}
	addressBytes := strings.ToLower(common.Bytes2Hex(address.Bytes()))

	for _, activity := range activities {
		if strings.ToLower(common.Bytes2Hex(activity.Actor)) != addressBytes {
			continue
		}

		entry := &models.ActivityEntry{
			TokenId: activity.TokenId,
			Color:   market.TokenColor(market.TokenId(activity.TokenId), totalTokens),
			Kind:    activity.Kind,
			Actor:   common.BytesToAddress(activity.Actor).Hex(),
			Time:    activity.FirstSeen,
		}
		if activity.Amount != "" {
			entry.AmountText = utils.FormatEthFromString(activity.Amount)
		}

		entries = append(entries, entry)
	}

	return entries
}
