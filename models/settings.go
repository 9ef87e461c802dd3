package models

// Settings are the store-wide knobs. They live in the kv table under
// SettingsKey; missing fields fall back to DefaultSettings.
type Settings struct {
	CurrentGoldRate24K        float64 `json:"current_gold_rate_24k"`
	CurrentGoldRate22K        float64 `json:"current_gold_rate_22k"`
	DefaultTaxRate            float64 `json:"default_tax_rate"`
	GoldRateProtectionMax     float64 `json:"gold_rate_protection_max"`
	WhatsappPhoneNumberID     string  `json:"whatsapp_phone_number_id"`
	WhatsappBusinessAccountID string  `json:"whatsapp_business_account_id"`
	WhatsappBusinessToken     string  `json:"whatsapp_business_token,omitempty"`
}

const SettingsKey = "settings"

func DefaultSettings() Settings {
	return Settings{
		CurrentGoldRate24K:    7200,
		CurrentGoldRate22K:    6600,
		DefaultTaxRate:        3,
		GoldRateProtectionMax: 500,
	}
}

// Redacted hides the provider token for API responses.
func (s Settings) Redacted() Settings {
	if s.WhatsappBusinessToken != "" {
		s.WhatsappBusinessToken = "********"
	}
	return s
}
