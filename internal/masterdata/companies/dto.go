package companies

// CompanyInput is the payload of PUT /companies/{id}.
type CompanyInput struct {
	Name      string `json:"name" validate:"required,max=160"`
	TradeName string `json:"tradeName" validate:"max=160"`
	Document  string `json:"document" validate:"required,max=32"`
	Email     string `json:"email" validate:"omitempty,email,max=160"`
	Phone     string `json:"phone" validate:"max=32"`
	Address   string `json:"address" validate:"max=255"`
}

// CreateInput is the payload of POST /companies. Admin optionally bootstraps
// the first administrator of the new company.
type CreateInput struct {
	Name      string      `json:"name" validate:"required,max=160"`
	TradeName string      `json:"tradeName" validate:"max=160"`
	Document  string      `json:"document" validate:"required,max=32"`
	Email     string      `json:"email" validate:"omitempty,email,max=160"`
	Phone     string      `json:"phone" validate:"max=32"`
	Address   string      `json:"address" validate:"max=255"`
	Admin     *AdminInput `json:"admin" validate:"omitempty"`
}

// AdminInput describes the first administrator of a company.
type AdminInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=160"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

func (in CreateInput) company() CompanyInput {
	return CompanyInput{Name: in.Name, TradeName: in.TradeName, Document: in.Document, Email: in.Email, Phone: in.Phone, Address: in.Address}
}
