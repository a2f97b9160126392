package models

import (
	"encoding/json"
	"time"
)

// AliasKind тип алиаса: сгенерированный токен или выбранный пользователем
type AliasKind string

const (
	AliasShort  AliasKind = "short"
	AliasCustom AliasKind = "custom"
)

// Valid проверяет, что тип алиаса известен
func (k AliasKind) Valid() bool {
	return k == AliasShort || k == AliasCustom
}

// Alias отображение короткого токена или кастомного имени на целевой URL
type Alias struct {
	Kind      AliasKind `json:"-"`
	Alias     string    `json:"-"`
	LongURL   string    `json:"longUrl"`
	UniqueID  string    `json:"uniqueId"`
	CreatedAt time.Time `json:"createdAt"`
}

// MarshalJSON отдаёт ключ под именем shortUrl или customLink в зависимости от типа
func (a Alias) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"longUrl":   a.LongURL,
		"uniqueId":  a.UniqueID,
		"createdAt": a.CreatedAt,
	}
	if a.Kind == AliasCustom {
		out["customLink"] = a.Alias
	} else {
		out["shortUrl"] = a.Alias
	}
	return json.Marshal(out)
}

// CreateAliasInput входные данные для создания алиаса
type CreateAliasInput struct {
	Kind     AliasKind
	LongURL  string
	Alias    string
	UniqueID string
}
