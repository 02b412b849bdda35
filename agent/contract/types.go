package contract

import (
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

// Tool names exposed to the extraction model. The stage machine pins which
// subset is offered on each turn.
const (
	ToolUpdateCompanyData   = "update_company_data"
	ToolCollectProductField = "collect_product_field"
	ToolAddCompleteProduct  = "add_complete_product"
	ToolUpdateProduct       = "update_product"
	ToolUpdateCompanyField  = "update_company_field"
	ToolViewData            = "view_data"
	ToolMarkCompleted       = "mark_completed"
)

// Command is one decoded tool call from the extraction model. The dispatcher
// applies commands in call order against the stage machine.
type Command interface {
	ToolName() string
}

// UpdateCompanyData carries a partial update of the scalar company
// attributes.
type UpdateCompanyData struct {
	Data statex.CompanyData
}

func (UpdateCompanyData) ToolName() string { return ToolUpdateCompanyData }

// CollectProductField carries one value for the product field currently
// being collected.
type CollectProductField struct {
	Field statex.ProductField
	Value string
}

func (CollectProductField) ToolName() string { return ToolCollectProductField }

// AddCompleteProduct carries a whole product at once, typically extracted
// from an uploaded document or a bulk answer. All six fields are required
// before a row is written.
type AddCompleteProduct struct {
	ProductID           string
	ProductName         string
	Price               string
	MainRawMaterials    string
	ProductStandard     string
	TechnicalAdvantages string
}

func (AddCompleteProduct) ToolName() string { return ToolAddCompleteProduct }

// Missing lists the Chinese labels of required product fields not supplied.
func (c AddCompleteProduct) Missing() []string {
	var missing []string
	for _, f := range []struct {
		value string
		field statex.ProductField
	}{
		{c.ProductID, statex.FieldProductID},
		{c.ProductName, statex.FieldProductName},
		{c.Price, statex.FieldPrice},
		{c.MainRawMaterials, statex.FieldMainRawMaterials},
		{c.ProductStandard, statex.FieldProductStandard},
		{c.TechnicalAdvantages, statex.FieldTechnicalAdvantages},
	} {
		if f.value == "" {
			missing = append(missing, f.field.DisplayName())
		}
	}
	return missing
}

// Product materializes the command into a product row for the given record.
func (c AddCompleteProduct) Product(onboardingID int64) statex.Product {
	return statex.Product{
		OnboardingID:        onboardingID,
		ProductID:           c.ProductID,
		ProductName:         c.ProductName,
		Price:               c.Price,
		MainRawMaterials:    c.MainRawMaterials,
		ProductStandard:     c.ProductStandard,
		TechnicalAdvantages: c.TechnicalAdvantages,
	}
}

// UpdateProduct corrects one field of an already saved product.
type UpdateProduct struct {
	ProductID string
	Field     statex.ProductField
	Value     string
}

func (UpdateProduct) ToolName() string { return ToolUpdateProduct }

// UpdateCompanyField corrects one already collected company attribute.
type UpdateCompanyField struct {
	Field string
	Value string
}

func (UpdateCompanyField) ToolName() string { return ToolUpdateCompanyField }

// View data scopes.
const (
	ViewCompany  = "company"
	ViewProducts = "products"
	ViewAll      = "all"
)

// ViewData asks for a read-only dump of collected data.
type ViewData struct {
	DataType string
}

func (ViewData) ToolName() string { return ToolViewData }

// MarkCompleted signals the user declared the collection finished.
type MarkCompleted struct {
	Completed bool
}

func (MarkCompleted) ToolName() string { return ToolMarkCompleted }

// HistoryMessage is one prior conversation turn passed to the model.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OracleRequest is everything the extraction model sees for one turn.
type OracleRequest struct {
	Record      *statex.Record
	Products    []statex.Product
	History     []HistoryMessage
	UserMessage string
}

// OracleResult is the decoded model output: an optional user-facing message
// plus the tool calls in call order.
type OracleResult struct {
	Message  string
	Commands []Command
}
