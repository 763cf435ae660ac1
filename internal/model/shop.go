package model

import "time"

// Product はストアフロントの商品を表す。
type Product struct {
	ID          string
	Title       string
	Description string
	Price       float64
	Category    string
	OutOfStock  bool
	Photo       string
	CreatedAt   time.Time
}
