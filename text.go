package main

var (
	AboutMe = `I turn messy data into decisions. Most of my projects start with a simple question,
	like where a business should open next or whether rooftop solar pays off, and end with a
	model, a write-up and something people can click on.`

	ProjectCityRanking = `A data-driven ranking of major cities for business expansion, built on a weighted
	KPI scoring model over population, income and education data.`

	ProjectSolar = `Sunlytics: enter your state, monthly electricity usage and coordinates to get a
	recommended rooftop system size, the subsidy-adjusted cost, payback period and 25-year savings.`

	ProjectHello = `A minimal landing page used to try out layouts and animations before they make it
	into the main site.`
)

// Project is one portfolio entry shown on the home page.
type Project struct {
	Slug     string
	Title    string
	Summary  string
	Link     string
	Sections []Section
}

// Section is one jump-to block of a project write-up.
type Section struct {
	ID      string
	Title   string
	Body    string
	Bullets []string
}

var cityRanking = Project{
	Slug:    "city-ranking",
	Title:   "City Ranking for Business Expansion",
	Summary: ProjectCityRanking,
	Link:    "/projects/city-ranking",
	Sections: []Section{
		{
			ID:    "overview",
			Title: "Project Overview",
			Body:  "This project focuses on analyzing city performance to determine the best locations for business expansion using data-driven insights.",
		},
		{
			ID:    "objectives",
			Title: "Objectives",
			Bullets: []string{
				"Identify key performance indicators (KPIs) for city evaluation.",
				"Develop a weighted scoring model to rank cities.",
				"Provide actionable recommendations for business expansion.",
			},
		},
		{
			ID:    "data-description",
			Title: "Data Description",
			Body:  "The dataset includes population, income levels, education rates, and other relevant factors for major cities.",
		},
		{
			ID:    "methodology",
			Title: "Methodology",
			Body:  "SQL was used for data extraction and transformation. A weighted scoring model was developed to rank cities based on predefined KPIs.",
		},
		{
			ID:    "key-insights",
			Title: "Key Insights",
			Body:  "Key insights include the identification of top-performing cities and the factors driving their success.",
		},
		{
			ID:    "challenges",
			Title: "Challenges & Learnings",
			Body:  "Challenges included data quality issues and the need for careful model validation.",
		},
		{
			ID:    "project-files",
			Title: "Project Files",
			Body:  "Project files include SQL scripts, data analysis reports, and presentation slides.",
		},
	},
}

var projects = []Project{
	cityRanking,
	{Slug: "solar", Title: "Sunlytics Solar Calculator", Summary: ProjectSolar, Link: "/solar"},
	{Slug: "hello", Title: "Hello World", Summary: ProjectHello, Link: "/hello"},
}

func findProject(slug string) (Project, bool) {
	for _, p := range projects {
		if p.Slug == slug && len(p.Sections) > 0 {
			return p, true
		}
	}
	return Project{}, false
}

func (p Project) section(id string) (Section, bool) {
	for _, s := range p.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}
