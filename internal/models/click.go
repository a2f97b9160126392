package models

import (
	"time"
)

const UnknownLocation = "Unknown"

// Location грубая геолокация клиента
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// UnknownPlace возвращает локацию-заглушку
func UnknownPlace() Location {
	return Location{City: UnknownLocation, Country: UnknownLocation}
}

// ClickEvent одно разрешение алиаса
type ClickEvent struct {
	Referrer  string    `json:"referrer"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`
	Location  Location  `json:"location"`
}

// ClickAggregate накопленная статистика кликов по uniqueId
type ClickAggregate struct {
	UniqueID   string       `json:"uniqueId"`
	ClickCount int64        `json:"clickCount"`
	Clicks     []ClickEvent `json:"clicks"`
}

// ClickRequest событие клика, поставленное в очередь обработки
type ClickRequest struct {
	Alias     string
	UniqueID  string
	Referrer  string
	ClientIP  string
	UserAgent string
	CreatedAt time.Time
}
