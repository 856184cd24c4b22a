package handlers

import (
	"fmt"
	"net/http"

	"github.com/rainbowsvgs/spectra/services"
	"github.com/rainbowsvgs/spectra/templates"
	"github.com/rainbowsvgs/spectra/types/models"
	"github.com/rainbowsvgs/spectra/utils"
)

// Settings will return the "settings" page using a go template
func Settings(w http.ResponseWriter, r *http.Request) {
	var settingsTemplateFiles = append(layoutTemplateFiles,
		"settings/settings.html",
	)

	var pageTemplate = templates.GetTemplate(settingsTemplateFiles...)
	data := InitPageData(w, r, "settings", "/settings", "Settings", settingsTemplateFiles)

	var formError error
	if r.Method == http.MethodPost {
		formError = handleSettingsForm(w, r)
	}

	currentWallet := getCurrentWallet(w, r)

	pageData := buildSettingsPageData(currentWallet)
	if formError != nil {
		pageData.FormError = utils.TruncateError(formError, 120)
	}
	data.Data = pageData

	w.Header().Set("Content-Type", "text/html")
	if handleTemplateError(w, r, "settings.go", "Settings", "", pageTemplate.ExecuteTemplate(w, "layout", data)) != nil {
		return // an error has occurred and was processed
	}
}

func handleSettingsForm(w http.ResponseWriter, r *http.Request) error {
	err := r.ParseForm()
	if err != nil {
		return err
	}

	if walletName := r.FormValue("wallet"); walletName != "" {
		http.SetCookie(w, &http.Cookie{
			Name:  "wallet",
			Value: walletName,
			Path:  "/",
		})
	}

	setFlagCookie(w, "darkMode", r.FormValue("darkMode") == "on")
	setFlagCookie(w, "showCollection", r.FormValue("showCollection") == "on")

	if rpcUrl := r.FormValue("rpcUrl"); rpcUrl != "" {
		if services.GlobalMarketService == nil {
			return fmt.Errorf("market service is not ready yet")
		}
		_, err := services.GlobalMarketService.AddCustomEndpoint(rpcUrl)
		if err != nil {
			return err
		}
	}

	return nil
}

func setFlagCookie(w http.ResponseWriter, name string, value bool) {
	cookieValue := "0"
	if value {
		cookieValue = "1"
	}
	http.SetCookie(w, &http.Cookie{
		Name:  name,
		Value: cookieValue,
		Path:  "/",
	})
}

func buildSettingsPageData(currentWallet string) *models.SettingsPageData {
	pageData := &models.SettingsPageData{
		ChainName:      utils.Config.Chain.Config.DisplayName,
		ChainId:        utils.Config.Chain.Config.ChainId,
		CurrentWallet:  currentWallet,
		AllowCustomRpc: utils.Config.ExecutionApi.AllowCustomRpc,
		Endpoints:      []*models.SettingsEndpoint{},
	}

	// the settings page is served by the early router before the
	// market service is up
	marketService := services.GlobalMarketService
	if marketService == nil {
		return pageData
	}
	pageData.WalletNames = marketService.GetWalletNames()

	for _, client := range marketService.GetEndpoints() {
		headNumber, _ := client.GetLastHead()
		endpoint := &models.SettingsEndpoint{
			Name:       client.GetName(),
			Url:        client.GetEndpointConfig().URL,
			Online:     marketService.IsEndpointReady(client),
			Version:    client.GetVersion(),
			HeadNumber: headNumber,
		}
		if lastError := client.GetLastError(); lastError != nil {
			endpoint.LastError = utils.TruncateError(lastError, 120)
		}

		pageData.Endpoints = append(pageData.Endpoints, endpoint)
	}

	return pageData
}
