package models

// SettingsPageData is a struct to hold info for the settings page
type SettingsPageData struct {
	ChainName      string              `json:"chain_name"`
	ChainId        uint64              `json:"chain_id"`
	WalletNames    []string            `json:"wallet_names"`
	CurrentWallet  string              `json:"current_wallet"`
	AllowCustomRpc bool                `json:"allow_custom_rpc"`
	Endpoints      []*SettingsEndpoint `json:"endpoints"`
	FormError      string              `json:"form_error,omitempty"`
}

type SettingsEndpoint struct {
	Name       string `json:"name"`
	Url        string `json:"url"`
	Online     bool   `json:"online"`
	Version    string `json:"version"`
	HeadNumber uint64 `json:"head_number"`
	LastError  string `json:"last_error"`
}
