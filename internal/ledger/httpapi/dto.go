package httpapi

type ProductResponse struct {
	ProductID  string `json:"product_id"`
	TotalStock int    `json:"total_stock"`
	Reserved   int    `json:"reserved"`
	Available  int    `json:"available"`
}

type SetStockRequest struct {
	TotalStock int `json:"total_stock"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
