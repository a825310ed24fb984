package domain

// FisherCriterionSpec is one template entry of Philip Fisher's 15-point
// checklist from "Common Stocks and Uncommon Profits". The template is
// fixed; a scorecard is built by filling in ratings against it.
type FisherCriterionSpec struct {
	ID          int
	Title       string
	Description string
	Category    CriterionCategory
	DataSource  DataSource
}

// QuantitativeCriterionIDs are the criteria rated from fundamentals
// data. Everything else is rated by qualitative research.
var QuantitativeCriterionIDs = []int{1, 5}

// ResearchCriterionIDs are the criteria rated by the research provider.
var ResearchCriterionIDs = []int{2, 3, 4, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}

// FisherCriteriaTemplate is the full 15-criterion checklist, ordered by id.
var FisherCriteriaTemplate = []FisherCriterionSpec{
	{
		ID:          1,
		Title:       "Products/Services with Market Potential",
		Description: "Does the company have products or services with sufficient market potential to make possible a sizable increase in sales for at least several years?",
		Category:    CategoryQuantitative,
		DataSource:  SourceStockData,
	},
	{
		ID:          2,
		Title:       "Management's Determination for Growth",
		Description: "Does the management have a determination to continue to develop products or processes that will still further increase total sales potentials when the growth potentials of currently attractive product lines have largely been exploited?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          3,
		Title:       "R&D Effectiveness",
		Description: "How effective are the company's research and development efforts in relation to its size?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          4,
		Title:       "Sales Organization",
		Description: "Does the company have an above-average sales organization?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          5,
		Title:       "Profit Margin",
		Description: "Does the company have a worthwhile profit margin?",
		Category:    CategoryQuantitative,
		DataSource:  SourceStockData,
	},
	{
		ID:          6,
		Title:       "Maintaining/Improving Profit Margins",
		Description: "What is the company doing to maintain or improve profit margins?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          7,
		Title:       "Labor and Personnel Relations",
		Description: "Does the company have outstanding labor and personnel relations?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          8,
		Title:       "Executive Relations",
		Description: "Does the company have outstanding executive relations?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          9,
		Title:       "Management Depth",
		Description: "Does the company have depth to its management?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          10,
		Title:       "Cost Analysis and Accounting Controls",
		Description: "How good are the company's cost analysis and accounting controls?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          11,
		Title:       "Industry-Specific Competitive Advantages",
		Description: "Are there other aspects of the business, somewhat peculiar to the industry involved, which will give the investor important clues as to how outstanding the company may be in relation to its competition?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          12,
		Title:       "Long-Range Profit Outlook",
		Description: "Does the company have a short-range or long-range outlook in regard to profits?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          13,
		Title:       "Future Equity Financing",
		Description: "In the foreseeable future will the growth of the company require sufficient equity financing so that the larger number of shares then outstanding will largely cancel the existing stockholders' benefit from this anticipated growth?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          14,
		Title:       "Management Communication",
		Description: "Does the management talk freely to investors about its affairs when things are going well but 'clam up' when troubles and disappointments occur?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
	{
		ID:          15,
		Title:       "Management Integrity",
		Description: "Does the company have a management of unquestionable integrity?",
		Category:    CategoryQualitative,
		DataSource:  SourceResearch,
	},
}

// FisherCriterionByID looks up a template entry by id.
func FisherCriterionByID(id int) (FisherCriterionSpec, bool) {
	for _, spec := range FisherCriteriaTemplate {
		if spec.ID == id {
			return spec, true
		}
	}
	return FisherCriterionSpec{}, false
}
