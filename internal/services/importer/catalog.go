package importer

// Canonical field keys referenced by the transformer
const (
	fieldName         = "name"
	fieldFirstName    = "first_name"
	fieldLastName     = "last_name"
	fieldFullName     = "full_name"
	fieldEmail        = "email"
	fieldKeywords     = "keywords"
	fieldTechnologies = "technologies"
	fieldTagsA        = "custom_tags_a"
	fieldTagsB        = "custom_tags_b"
	fieldTagsC        = "custom_tags_c"
)

// companyCatalog mirrors the server's bulk company schema. Order matters:
// the resolver assigns the first matching field.
var companyCatalog = []FieldDefinition{
	{Key: "name", Label: "Company Name", Required: true, Aliases: []string{"company", "organization", "account name"}},
	{Key: "domain", Label: "Domain", Aliases: []string{"website", "company domain", "web site"}},
	{Key: "linkedin_url", Label: "LinkedIn URL", Aliases: []string{"linkedin", "company linkedin url"}},
	{Key: "location", Label: "Location", Aliases: []string{"address", "company address", "city"}},
	{Key: "employee_count", Label: "Employee Count", Aliases: []string{"employees", "# employees", "headcount"}},
	{Key: "industry", Label: "Industry", Aliases: []string{"sector"}},
	{Key: "keywords", Label: "Keywords", Aliases: []string{"tags", "topics"}},
	{Key: "technologies", Label: "Technologies", Aliases: []string{"tech stack", "technology"}},
	{Key: "description", Label: "Description", Aliases: []string{"about", "short description"}},
	{Key: "country", Label: "Country"},
	{Key: "twitter_url", Label: "Twitter URL", Aliases: []string{"twitter"}},
	{Key: "facebook_url", Label: "Facebook URL", Aliases: []string{"facebook"}},
	{Key: "revenue", Label: "Revenue", Aliases: []string{"annual revenue"}},
	{Key: "funding_date", Label: "Funding Date", Aliases: []string{"last funding date"}},
	{Key: "custom_tags_a", Label: "Tags A"},
	{Key: "custom_tags_b", Label: "Tags B"},
	{Key: "custom_tags_c", Label: "Tags C"},
	{Key: "lead_source", Label: "Lead Source", Aliases: []string{"source"}},
	{Key: "lead_score", Label: "Lead Score", Aliases: []string{"score"}},
	{Key: "status", Label: "Status", Aliases: []string{"lead status", "stage"}},
}

// contactCatalog mirrors the server's bulk contact schema. Email is required
// because the remote upsert uses it as the conflict key.
var contactCatalog = []FieldDefinition{
	{Key: "first_name", Label: "First Name", Required: true, Aliases: []string{"given name", "forename"}},
	{Key: "last_name", Label: "Last Name", Required: true, Aliases: []string{"surname", "family name"}},
	{Key: "email", Label: "Email", Required: true, Aliases: []string{"email address", "work email"}},
	{Key: "full_name", Label: "Full Name", Aliases: []string{"contact name", "person name"}},
	{Key: "phone", Label: "Phone", Aliases: []string{"phone number", "mobile", "mobile phone"}},
	{Key: "location", Label: "Location", Aliases: []string{"address", "city"}},
	{Key: "linkedin_url", Label: "LinkedIn URL", Aliases: []string{"linkedin", "person linkedin url"}},
	{Key: "working_company_name", Label: "Company Name", Aliases: []string{"company", "organization", "current company"}},
	{Key: "job_title", Label: "Job Title", Aliases: []string{"title", "position", "role"}},
	{Key: "seniority_level", Label: "Seniority", Aliases: []string{"seniority level"}},
	{Key: "department", Label: "Department", Aliases: []string{"departments"}},
	{Key: "company_domain", Label: "Company Domain", Aliases: []string{"company website", "domain"}},
	{Key: "company_linkedin_url", Label: "Company LinkedIn URL", Aliases: []string{"company linkedin"}},
	{Key: "custom_tags_a", Label: "Tags A"},
	{Key: "custom_tags_b", Label: "Tags B"},
	{Key: "custom_tags_c", Label: "Tags C"},
	{Key: "lead_source", Label: "Lead Source", Aliases: []string{"source"}},
	{Key: "lead_score", Label: "Lead Score", Aliases: []string{"score"}},
	{Key: "status", Label: "Status", Aliases: []string{"lead status", "stage"}},
}

// FieldCatalog returns the fixed field catalog for an entity type.
// The returned slice is shared constant data and must not be mutated.
func FieldCatalog(entity EntityType) []FieldDefinition {
	switch entity {
	case EntityCompany:
		return companyCatalog
	case EntityContact:
		return contactCatalog
	default:
		return nil
	}
}

// isTagField reports whether a field key is one of the manual tag collections
func isTagField(key string) bool {
	return key == fieldTagsA || key == fieldTagsB || key == fieldTagsC
}

// isCompanyListField reports whether a field key is a company-only multi-value field
func isCompanyListField(key string) bool {
	return key == fieldKeywords || key == fieldTechnologies
}

// catalogKeys returns the set of known field keys for mapping validation
func catalogKeys(catalog []FieldDefinition) map[string]bool {
	keys := make(map[string]bool, len(catalog))
	for _, f := range catalog {
		keys[f.Key] = true
	}
	return keys
}
