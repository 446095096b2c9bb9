package rubric

// Rule identifiers of the climate EDA rubric.
const (
	RuleRequiredLibraries = "required_libraries"
	RuleDataLoading       = "data_loading"
	RuleYearlyAggregation = "yearly_aggregation"
	RuleUnivariate        = "univariate_analysis"
	RuleBivariate         = "bivariate_analysis"
	RuleMultivariate      = "multivariate_analysis"
	RuleConclusions       = "conclusions_present"
	RuleMinVisualizations = "min_visualizations"
	RuleClimateVariables  = "climate_variables_analyzed"
)

const (
	// MinVisualizationCalls is the number of plotting calls min_visualizations requires.
	MinVisualizationCalls = 5

	// ClimateDataLoadLiteral is the exact load call data_loading looks for.
	ClimateDataLoadLiteral = "read_csv('data/Climate_Change_Indicators.csv')"
)

// RequiredLibraries are the modules a climate EDA notebook must import.
var RequiredLibraries = []string{"pandas", "numpy", "matplotlib", "seaborn"}

// ClimateVariables are the dataset columns every analysis must reference.
var ClimateVariables = []string{
	"Global Average Temperature (°C)",
	"CO2 Concentration (ppm)",
	"Sea Level Rise (mm)",
	"Arctic Ice Area (million km²)",
}

// Identifier and whitespace classes are spelled out so that non-ASCII column
// names and spacing match.
var (
	yearlyAggregationPatterns = []string{
		`groupby\([\s\p{Z}]*['"]Year['"][\s\p{Z}]*\)`,
		`groupby\([\s\p{Z}]*['"][\p{L}\p{N}_]+['"][\s\p{Z}]*\)\[['"][\p{L}\p{N}_]+['"]`,
		`resample\([\s\p{Z}]*['"]Y['"][\s\p{Z}]*\)`,
	}

	univariateVisPatterns = []string{
		`hist(plot)?\(`,
		`boxplot\(`,
		`plot\(`,
		`displot\(`,
		`kdeplot\(`,
	}

	descriptiveStatsPatterns = []string{
		`describe\(`,
		`mean\(`,
		`median\(`,
		`std\(`,
		`min\(`,
		`max\(`,
	}

	bivariateVisPatterns = []string{
		`scatter(plot)?\(`,
		`reg(plot)?\(`,
		`lineplot\(`,
		`barplot\(`,
		`violinplot\(`,
		`heatmap\(`,
		`corr\(`,
	}

	multivariateVisPatterns = []string{
		`pairplot\(`,
		`PCA\(`,
		`heatmap\(`,
		`parallel_coordinates\(`,
		`andrews_curves\(`,
		`radviz\(`,
		`3d scatter`,
	}

	conclusionKeywords = []string{
		`conclusion`,
		`finding`,
		`summar`,
		`insight`,
		`observation`,
	}

	// Plotting calls through the matplotlib and seaborn aliases and the
	// DataFrame accessor form.
	visualizationCallPatterns = []string{
		`plt\.[\p{L}\p{N}_]+\(`,
		`sns\.[\p{L}\p{N}_]+\(`,
		`df\.[\p{L}\p{N}_]+\.plot\(`,
	}
)

// ClimateEDA returns the rubric for the climate change indicators exploratory
// data analysis assignment. Each call returns a fresh slice.
func ClimateEDA() []Rule {
	imports := make([]string, len(RequiredLibraries))
	for i, lib := range RequiredLibraries {
		imports[i] = "import " + lib
	}

	return []Rule{
		{
			ID:             RuleRequiredLibraries,
			Description:    "All required libraries are imported",
			Predicate:      ContainsAll(TargetCode, imports, RequiredLibraries),
			FailureMessage: `Missing required import for {{join .Missing ", "}}`,
		},
		{
			ID:             RuleDataLoading,
			Description:    "Climate data is loaded from the expected file",
			Predicate:      Contains(TargetCode, ClimateDataLoadLiteral),
			FailureMessage: "Data file not loaded correctly",
		},
		{
			ID:             RuleYearlyAggregation,
			Description:    "Data is aggregated by year",
			Predicate:      MatchAny(TargetCode, false, yearlyAggregationPatterns...),
			FailureMessage: "No evidence of yearly data aggregation",
		},
		{
			ID:          RuleUnivariate,
			Description: "Univariate visualizations and descriptive statistics are present",
			Predicate: MatchGroups(TargetCode,
				PatternGroup{Name: "univariate visualizations", Patterns: univariateVisPatterns},
				PatternGroup{Name: "descriptive statistics calculation", Patterns: descriptiveStatsPatterns},
			),
			FailureMessage: `No evidence of {{join .Missing " or "}}`,
		},
		{
			ID:             RuleBivariate,
			Description:    "Bivariate relationships are visualized",
			Predicate:      MatchAny(TargetCode, false, bivariateVisPatterns...),
			FailureMessage: "No evidence of bivariate visualizations",
		},
		{
			ID:             RuleMultivariate,
			Description:    "Multivariate relationships are visualized",
			Predicate:      MatchAny(TargetCode, false, multivariateVisPatterns...),
			FailureMessage: "No evidence of multivariate visualizations",
		},
		{
			ID:             RuleConclusions,
			Description:    "Markdown cells contain conclusions or insights",
			Predicate:      MatchAny(TargetMarkdown, true, conclusionKeywords...),
			FailureMessage: "No evidence of conclusions or insights in the analysis",
		},
		{
			ID:             RuleMinVisualizations,
			Description:    "At least five visualization calls are made",
			Predicate:      CountAtLeast(TargetCode, MinVisualizationCalls, visualizationCallPatterns...),
			FailureMessage: "Insufficient number of visualizations ({{.Details.count}} found, minimum {{.Details.min}} required)",
		},
		{
			ID:             RuleClimateVariables,
			Description:    "Every climate variable is analyzed",
			Predicate:      ContainsAll(TargetCode, ClimateVariables, nil),
			FailureMessage: `Climate variables not analyzed: {{join .Missing ", "}}`,
		},
	}
}
