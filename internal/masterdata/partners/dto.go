package partners

// PartnerInput is the payload of create and update.
type PartnerInput struct {
	Type     Type   `json:"type" validate:"required,oneof=CUSTOMER SUPPLIER BOTH"`
	Name     string `json:"name" validate:"required,max=160"`
	Document string `json:"document" validate:"max=32"`
	Email    string `json:"email" validate:"omitempty,email,max=160"`
	Phone    string `json:"phone" validate:"max=32"`
	Address  string `json:"address" validate:"max=255"`
	Notes    string `json:"notes" validate:"max=2000"`
}
