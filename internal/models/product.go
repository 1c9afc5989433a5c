package models

import "time"

type Product struct {
	ProductID   string    `json:"id"`
	ProductName string    `json:"productName"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Amount      int       `json:"amount"`
	Price       float64   `json:"price"`
	Created     time.Time `json:"created"`
}
