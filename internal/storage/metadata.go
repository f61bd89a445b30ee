package storage

// SourceMetadata is the static description of a data source, defined at
// build time and used only to enrich the manifest.
type SourceMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Methodology string `json:"methodology"`
	Covers      string `json:"covers"` // "desktop" or "all_devices"
	Region      string `json:"region"` // "global" or "us"
}

// Sources holds the metadata for every known source, keyed by source id.
// Extensible by adding entries here.
var Sources = map[string]SourceMetadata{
	"steam": {
		ID:          "steam",
		Name:        "Steam Hardware Survey",
		Description: "OS distribution among active Steam users (gaming population)",
		URL:         "https://store.steampowered.com/hwsurvey/",
		Methodology: "Monthly opt-in survey of Steam users worldwide",
		Covers:      "desktop",
		Region:      "global",
	},
	"statcounter": {
		ID:          "statcounter",
		Name:        "StatCounter Global Stats",
		Description: "Desktop OS market share based on web traffic analysis",
		URL:         "https://gs.statcounter.com/",
		Methodology: "Aggregated web traffic from millions of websites globally",
		Covers:      "desktop",
		Region:      "global",
	},
	"dap": {
		ID:          "dap",
		Name:        "US Digital Analytics Program",
		Description: "OS distribution across US federal government websites (all devices)",
		URL:         "https://analytics.usa.gov/",
		Methodology: "Analytics from participating US government agencies",
		Covers:      "all_devices",
		Region:      "us",
	},
	"cloudflare": {
		ID:          "cloudflare",
		Name:        "Cloudflare Radar",
		Description: "OS share across all HTTP traffic observed by Cloudflare (all devices, worldwide)",
		URL:         "https://radar.cloudflare.com/",
		Methodology: "Aggregated from Cloudflare's global network traffic",
		Covers:      "all_devices",
		Region:      "global",
	},
	"stackoverflow": {
		ID:          "stackoverflow",
		Name:        "Stack Overflow Survey",
		Description: "OS used for personal use among software developers (annual survey)",
		URL:         "https://insights.stackoverflow.com/survey",
		Methodology: "Self-reported annual survey of ~65,000 developers worldwide",
		Covers:      "desktop",
		Region:      "global",
	},
	"jetbrains": {
		ID:          "jetbrains",
		Name:        "JetBrains Developer Ecosystem Survey",
		Description: "OS used for development among software developers (annual survey)",
		URL:         "https://www.jetbrains.com/lp/devecosystem/",
		Methodology: "Self-reported annual survey of ~20,000+ developers worldwide. " +
			"Multi-select OS question; shares can exceed 100%.",
		Covers: "desktop",
		Region: "global",
	},
}
