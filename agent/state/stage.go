package state

// Stage is the server-driven collection state machine for company data.
// The stage decides which single field the extraction model is allowed to
// fill on the next turn.
type Stage string

const (
	StageIndustry             Stage = "industry"
	StageCapitalAmount        Stage = "capital_amount"
	StageInventionPatentCount Stage = "invention_patent_count"
	StageUtilityPatentCount   Stage = "utility_patent_count"
	StageCertificationCount   Stage = "certification_count"
	StageESGCertification     Stage = "esg_certification"
	StageProduct              Stage = "product"
	StageCompleted            Stage = "completed"
)

var StageOrder = []Stage{
	StageIndustry,
	StageCapitalAmount,
	StageInventionPatentCount,
	StageUtilityPatentCount,
	StageCertificationCount,
	StageESGCertification,
	StageProduct,
	StageCompleted,
}

// ProductField is the sub-machine for collecting one product. All six fields
// are mandatory before a product row is written.
type ProductField string

const (
	FieldProductID           ProductField = "product_id"
	FieldProductName         ProductField = "product_name"
	FieldPrice               ProductField = "price"
	FieldMainRawMaterials    ProductField = "main_raw_materials"
	FieldProductStandard     ProductField = "product_standard"
	FieldTechnicalAdvantages ProductField = "technical_advantages"
)

var ProductFieldOrder = []ProductField{
	FieldProductID,
	FieldProductName,
	FieldPrice,
	FieldMainRawMaterials,
	FieldProductStandard,
	FieldTechnicalAdvantages,
}

var stageAttribute = map[Stage]string{
	StageIndustry:             "industry",
	StageCapitalAmount:        "capital_amount",
	StageInventionPatentCount: "invention_patent_count",
	StageUtilityPatentCount:   "utility_patent_count",
	StageCertificationCount:   "certification_count",
	StageESGCertification:     "esg_certification",
}

var stageDisplayName = map[Stage]string{
	StageIndustry:             "產業別",
	StageCapitalAmount:        "資本總額",
	StageInventionPatentCount: "發明專利數量",
	StageUtilityPatentCount:   "新型專利數量",
	StageCertificationCount:   "公司認證資料數量",
	StageESGCertification:     "ESG相關認證",
	StageProduct:              "產品資訊",
}

var productFieldDisplayName = map[ProductField]string{
	FieldProductID:           "產品ID",
	FieldProductName:         "產品名稱",
	FieldPrice:               "價格",
	FieldMainRawMaterials:    "主要原料",
	FieldProductStandard:     "產品規格",
	FieldTechnicalAdvantages: "技術優勢",
}

// DisplayName returns the Chinese label shown to the user for a stage.
func (s Stage) DisplayName() string {
	if name, ok := stageDisplayName[s]; ok {
		return name
	}
	return "資料"
}

// Attribute returns the company attribute collected at this stage, or ""
// for the product and completed stages.
func (s Stage) Attribute() string {
	return stageAttribute[s]
}

func (s Stage) next() Stage {
	for i, stage := range StageOrder {
		if stage == s && i < len(StageOrder)-1 {
			return StageOrder[i+1]
		}
	}
	return s
}

// DisplayName returns the Chinese label shown to the user for a product field.
func (f ProductField) DisplayName() string {
	if name, ok := productFieldDisplayName[f]; ok {
		return name
	}
	return "產品資訊"
}

// Index returns the 1-based position of the field in the collection order.
func (f ProductField) Index() int {
	for i, field := range ProductFieldOrder {
		if field == f {
			return i + 1
		}
	}
	return 1
}

func (f ProductField) next() (ProductField, bool) {
	for i, field := range ProductFieldOrder {
		if field == f && i < len(ProductFieldOrder)-1 {
			return ProductFieldOrder[i+1], true
		}
	}
	return f, false
}

// ValidProductField reports whether f is one of the six product fields.
func ValidProductField(f ProductField) bool {
	_, ok := productFieldDisplayName[f]
	return ok
}
