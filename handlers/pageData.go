package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rainbowsvgs/spectra/services"
	"github.com/rainbowsvgs/spectra/types"
	"github.com/rainbowsvgs/spectra/utils"
)

var layoutTemplateFiles = []string{
	"_layout/layout.html",
	"_layout/header.html",
	"_layout/footer.html",
}

func InitPageData(w http.ResponseWriter, r *http.Request, active, path, title string, mainTemplates []string) *types.PageData {
	fullTitle := fmt.Sprintf("%v - %v", utils.Config.Frontend.SiteName, title)

	if title == "" {
		fullTitle = fmt.Sprintf("%v", utils.Config.Frontend.SiteName)
	}

	siteDomain := utils.Config.Frontend.SiteDomain
	if siteDomain == "" {
		siteDomain = r.Host
	}

	data := &types.PageData{
		Meta: &types.Meta{
			Title:       fullTitle,
			Description: "Spectra makes the Rainbow SVGs collection and marketplace accessible to non-technical end users",
			Domain:      siteDomain,
			Path:        path,
		},
		Active:           active,
		Data:             &types.Empty{},
		Version:          utils.GetExplorerVersion(),
		Year:             time.Now().UTC().Year(),
		ExplorerTitle:    utils.Config.Frontend.SiteName,
		ExplorerSubtitle: utils.Config.Frontend.SiteSubtitle,
		ChainName:        utils.Config.Chain.Config.DisplayName,
		ChainId:          utils.Config.Chain.Config.ChainId,
		CollectionSize:   utils.Config.Chain.Config.CollectionSize,
		ExplorerLink:     utils.Config.Chain.Config.ExplorerLink,
		IsReady:          services.GlobalMarketService != nil && services.GlobalMarketService.GetSnapshot() != nil,
		Lang:             "en-US",
		Debug:            utils.Config.Frontend.Debug,
		MainMenuItems:    createMenuItems(active),
		ApiEnabled:       utils.Config.Api.Enabled,
	}

	if utils.Config.Frontend.SiteDescription != "" {
		data.Meta.Description = utils.Config.Frontend.SiteDescription
	}

	if data.Debug {
		data.DebugTemplates = mainTemplates
	}

	if utils.Config.Frontend.InfoBanner != "" {
		banner := template.HTML(utils.Config.Frontend.InfoBanner)
		data.InfoBanner = &banner
	} else if services.GlobalMarketService != nil && !services.GlobalMarketService.HasReadyEndpoint() {
		banner := template.HTML("No execution endpoint is reachable on the configured chain, displayed data may be outdated.")
		data.InfoBanner = &banner
	}

	for _, v := range r.Cookies() {
		switch v.Name {
		case "language":
			data.Lang = v.Value
		case "darkMode":
			data.DarkMode = v.Value == "1"
		case "showCollection":
			data.ShowCollection = v.Value == "1"
		}
	}

	return data
}

func createMenuItems(active string) []types.MainMenuItem {
	return []types.MainMenuItem{
		{
			Label:    "Claim",
			Path:     "/",
			IsActive: active == "claim",
		},
		{
			Label:    "Market",
			Path:     "/market",
			IsActive: active == "market",
		},
		{
			Label:    "Settings",
			Path:     "/settings",
			IsActive: active == "settings",
		},
	}
}

// getCurrentWallet resolves the active signing wallet of a request.
// The wallet query parameter wins over the cookie and refreshes it.
// Unknown wallet names are dropped.
func getCurrentWallet(w http.ResponseWriter, r *http.Request) string {
	walletName := r.URL.Query().Get("wallet")
	if walletName == "" {
		if cookie, err := r.Cookie("wallet"); err == nil {
			walletName = cookie.Value
		}
	} else if w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:  "wallet",
			Value: walletName,
			Path:  "/",
		})
	}

	if walletName != "" && services.GlobalMarketService != nil &&
		!utils.SliceContains(services.GlobalMarketService.GetWalletNames(), walletName) {
		return ""
	}

	return walletName
}

// used to handle errors constructed by Template.ExecuteTemplate correctly
func handleTemplateError(w http.ResponseWriter, r *http.Request, fileIdentifier string, functionIdentifier string, infoIdentifier string, err error) error {
	// ignore network related errors
	if err != nil && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ETIMEDOUT) {
		logger.WithFields(logger.Fields{
			"file":       fileIdentifier,
			"function":   functionIdentifier,
			"info":       infoIdentifier,
			"error type": fmt.Sprintf("%T", err),
			"route":      r.URL.String(),
		}).WithError(err).Error("error executing template")
		http.Error(w, "Internal server error", http.StatusServiceUnavailable)
	}
	return err
}
