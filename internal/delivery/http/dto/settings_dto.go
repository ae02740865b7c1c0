package dto

import "tradeledger/internal/domain"

// AutoTradeRequest switches alert-driven trades between real and simulated
type AutoTradeRequest struct {
	AutoTrade *bool `json:"autoTrade" validate:"required"`
}

// LeafSettingsRequest maps leaf ids to their sizing changes
type LeafSettingsRequest map[string]domain.LeafSettingsPatch
