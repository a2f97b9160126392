package models

// Domain пользовательский домен
type Domain struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}
