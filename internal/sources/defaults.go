package sources

// DefaultDomains returns the built-in domain -> publisher name table.
func DefaultDomains() map[string]string {
	return map[string]string{
		"newsit.gr":          "NewsIT",
		"protothema.gr":      "Πρώτο Θέμα",
		"in.gr":              "In.gr",
		"ethnos.gr":          "Εθνος",
		"tanea.gr":           "Τα Νέα",
		"naftemporiki.gr":    "Ναυτεμπορική",
		"tovima.gr":          "Το Βήμα",
		"gr.euronews.com":    "Euronews",
		"euronews.com":       "Euronews",
		"dw.com":             "DW",
		"bbci.co.uk":         "BBC News",
		"reuters.com":        "Reuters",
		"gazzetta.gr":        "Gazzetta",
		"sdna.gr":            "SDNA",
		"sport24.gr":         "Sport24",
		"olaprasina1908.gr":  "Όλα Πράσινα",
		"trifilara.gr":       "Trifilara",
		"panathinaikos24.gr": "Panathinaikos24",
		"insomnia.gr":        "Insomnia",
		"techgear.gr":        "Techgear",
		"digitallife.gr":     "Digital Life",
		"pcmag.com":          "PC Magazine",
	}
}

// DefaultCategories returns the built-in category list.
func DefaultCategories() []Category {
	return []Category{
		{
			Key:   "breaking",
			Title: "ΕΚΤΑΚΤΗ ΕΠΙΚΑΙΡΟΤΗΤΑ & ΕΛΛΑΔΑ",
			Color: "red",
			Feeds: []string{
				"https://www.newsit.gr/feed/",
				"https://www.protothema.gr/greece/rss/",
				"https://www.in.gr/feed/",
				"https://www.ethnos.gr/rss/greece/",
			},
		},
		{
			Key:   "politicsGR",
			Title: "ΠΟΛΙΤΙΚΑ (ΕΛΛΑΔΑ)",
			Color: "purple",
			Feeds: []string{
				"https://www.tanea.gr/category/politics/feed/",
				"https://www.naftemporiki.gr/politics/feed/",
				"https://www.tovima.gr/category/politics/feed/",
				"https://www.ethnos.gr/rss/politics/",
			},
		},
		{
			Key:   "worldPolitics",
			Title: "ΠΟΛΙΤΙΚΑ (ΠΑΓΚΟΣΜΙΩΣ)",
			Color: "blue",
			Feeds: []string{
				"https://gr.euronews.com/rss?format=all",
				"https://rss.dw.com/rdf/rss-gr-all",
				"https://feeds.bbci.co.uk/news/world/rss.xml",
				"https://feeds.reuters.com/Reuters/worldNews",
			},
		},
		{
			Key:   "sports",
			Title: "ΑΘΛΗΤΙΣΜΟΣ & SUPER LEAGUE",
			Color: "green",
			Feeds: []string{
				"https://www.gazzetta.gr/rss/",
				"https://www.sdna.gr/rss/",
				"https://www.sport24.gr/rss/default.xml",
				"https://www.newsit.gr/category/athlitika/feed/",
			},
		},
		{
			Key:   "panathinaikos",
			Title: "ΠΑΝΑΘΗΝΑΪΚΟΣ",
			Color: "lime",
			Feeds: []string{
				"https://olaprasina1908.gr/feed/",
				"https://trifilara.gr/feed/",
				"https://www.gazzetta.gr/rss/panathinaikos",
				"https://panathinaikos24.gr/feed/",
			},
		},
		{
			Key:   "tech",
			Title: "ΤΕΧΝΟΛΟΓΙΑ & SCIENCE",
			Color: "pink",
			Feeds: []string{
				"https://www.insomnia.gr/rss/index.xml/",
				"https://www.techgear.gr/feed",
				"https://www.digitallife.gr/feed",
				"https://gr.pcmag.com/feed.xml",
			},
		},
	}
}

// Default builds the built-in registry.
func Default() *Registry {
	reg, err := NewRegistry(DefaultCategories(), DefaultDomains())
	if err != nil {
		panic(err) // built-in data is static
	}
	return reg
}
