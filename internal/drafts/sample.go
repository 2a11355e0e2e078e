package drafts

import "github.com/bilgisen/draftdesk/internal/models"

var sampleDrafts = []models.Draft{
	{
		ID:    "mock-1",
		Title: "The Future of Cloud Computing: Azure Innovations in 2025",
		Content: `<h1>The Future of Cloud Computing: Azure Innovations in 2025</h1>
<p>Cloud computing continues to evolve at an unprecedented pace. This year brings quantum services, deeper AI integration and carbon-negative operations.</p>
<h2>Key Innovations This Year</h2>
<ul>
  <li><strong>Azure Quantum Computing Services</strong></li>
  <li><strong>Enhanced AI Integration</strong></li>
  <li><strong>Edge Computing Expansion</strong></li>
</ul>`,
		Status:      models.StatusDraft,
		CreatedDate: "2025-01-15T09:00:00Z",
		Author:      "Staff Writer",
		Category:    "Azure",
		ReadTime:    "5 min read",
		Tags:        []string{"Azure", "Cloud Computing", "Innovation", "AI"},
		Source:      "TechCrunch",
	},
	{
		ID:    "mock-2",
		Title: "Serverless Architecture Best Practices with Azure Functions",
		Content: `<h1>Serverless Architecture Best Practices with Azure Functions</h1>
<p>Serverless computing changed how applications are built and deployed. Functions give an event-driven platform without managing infrastructure.</p>
<h2>Core Benefits of Serverless</h2>
<ul>
  <li><strong>Cost Efficiency</strong></li>
  <li><strong>Automatic Scaling</strong></li>
  <li><strong>Reduced Maintenance</strong></li>
</ul>`,
		Status:      models.StatusDraft,
		CreatedDate: "2025-01-14T14:30:00Z",
		Author:      "Staff Writer",
		Category:    "Serverless",
		ReadTime:    "5 min read",
		Tags:        []string{"Serverless", "Azure Functions", "Architecture", "Best Practices"},
		Source:      "The Verge",
	},
	{
		ID:          "mock-3",
		Title:       "Azure DevOps: Streamlining CI/CD Pipelines",
		Content:     `<h1>Azure DevOps: Streamlining CI/CD Pipelines for Modern Development</h1>`,
		Status:      models.StatusPublished,
		CreatedDate: "2025-01-13T11:15:00Z",
		Author:      "Staff Writer",
		Category:    "DevOps",
		ReadTime:    "5 min read",
		Tags:        []string{"DevOps", "CI/CD", "Azure Pipelines", "Automation"},
		Source:      "Azure Blog",
	},
}

// SampleDrafts returns a fresh copy of the built-in fallback set
func SampleDrafts() []models.Draft {
	out := make([]models.Draft, len(sampleDrafts))
	for i, d := range sampleDrafts {
		out[i] = d.Clone()
	}
	return out
}
