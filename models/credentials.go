package models

// Credentials are the two opaque strings the external geocoding and routing
// providers authenticate with. They are stored server-side and never shipped
// to a browser.
type Credentials struct {
	AppID  string `json:"app_id"`
	APIKey string `json:"api_key"`
}
