package model

import (
	"github.com/LeonardoBeccarini/soilwatch/internal/model/entities"
	"github.com/LeonardoBeccarini/soilwatch/internal/model/messages"
)

// Aliases exposing the shared types to the services

type (
	Reading        = messages.Reading
	ChannelReading = messages.ChannelReading
	RiskResult     = messages.RiskResult
	AlertEvent     = messages.AlertEvent
	Alert          = entities.Alert
	AlertPatch     = entities.AlertPatch
	RiskCategory   = entities.RiskCategory
	Severity       = entities.Severity
)

const (
	RiskLow    = entities.RiskLow
	RiskMedium = entities.RiskMedium
	RiskHigh   = entities.RiskHigh
)
