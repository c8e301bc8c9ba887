package products

// ProductForm carries caller input for create and update.
type ProductForm struct {
	Name        string   `json:"name" validate:"required,alphanum"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Image       string   `json:"image" validate:"omitempty,uri"`
}

// UpdateForm carries partial caller input; absent fields keep their value.
type UpdateForm struct {
	Name        *string  `json:"name" validate:"omitempty,alphanum"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Image       *string  `json:"image" validate:"omitempty,uri"`
}
