package products

// Permissions gating the mutating product operations.
const (
	PermAdd    = "ADD_PRODUCT"
	PermEdit   = "EDIT_PRODUCT"
	PermRemove = "REMOVE_PRODUCT"
)

// Product represents a catalog entry.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
}
