package filing

// Template schemas for the two regulatory sources the system was built
// around. Producers for other sources declare their own schemas the same
// way and register them with a Resolver.

var edinetSchema = MustSchema("filing.EDINETFiling", BaseSchema(),
	Field{Name: "edinet_code", Kind: KindString, Description: "Filer EDINET code"},
	Field{Name: "sec_code", Kind: KindString, Description: "Securities code"},
	Field{Name: "jcn", Kind: KindString, Description: "Corporate number"},
	Field{Name: "filer_name", Kind: KindString, Description: "Filer name"},
	Field{Name: "ordinance_code", Kind: KindString, Description: "Ordinance code"},
	Field{Name: "form_code", Kind: KindString, Description: "Form code"},
	Field{Name: "doc_description", Kind: KindString, Description: "Document description"},
	Field{Name: "period_start", Kind: KindTime, Description: "Period start"},
	Field{Name: "period_end", Kind: KindTime, Description: "Period end"},
	Field{Name: "submit_datetime", Kind: KindTime, Description: "Submission time"},
)

// EDINETSchema returns the template schema for EDINET filings.
func EDINETSchema() *Schema {
	return edinetSchema
}

var edgarSchema = MustSchema("filing.EDGARFiling", BaseSchema(),
	Field{Name: "cik", Kind: KindString, Description: "Central Index Key"},
	Field{Name: "accession_number", Kind: KindString, Description: "Accession number"},
	Field{Name: "company_name", Kind: KindString, Description: "Company name"},
	Field{Name: "form_type", Kind: KindString, Description: "Form type (10-K, 10-Q, ...)"},
	Field{Name: "filing_date", Kind: KindTime, Description: "Filing date"},
	Field{Name: "period_of_report", Kind: KindTime, Description: "Period of report"},
	Field{Name: "sic_code", Kind: KindString, Description: "Standard Industrial Classification"},
	Field{Name: "state_of_incorporation", Kind: KindString, Description: "State of incorporation"},
	Field{Name: "fiscal_year_end", Kind: KindString, Description: "Fiscal year end"},
)

// EDGARSchema returns the template schema for EDGAR filings.
func EDGARSchema() *Schema {
	return edgarSchema
}
