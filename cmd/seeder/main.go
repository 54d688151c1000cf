// seeder writes sample scraped documents as JSON files, in the shape the
// bioindex ingest command consumes. Useful for local testing without a
// scraper run.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/civiclens/bioindex/core"
)

var samples = []*core.Document{
	{
		Name:       "Eleanor Vance",
		SourceURL:  "https://example.org/figures/eleanor-vance",
		RawContent: "Eleanor Vance is a fictional senator who spent two decades on infrastructure policy. She chaired the transit committee and pushed through the harbor modernization act.",
		Speeches: []string{
			"We do not inherit our bridges from our parents, we borrow them from our children. Every deferred repair is a debt with interest.",
			"The harbor is not a line item. It is forty thousand jobs and the price of groceries in every county east of the river.",
		},
		Statements: []string{
			"I will vote against any budget that cuts track inspection funding.",
		},
		News: []string{
			"Vance announced a bipartisan agreement on the regional rail expansion on Tuesday.",
		},
	},
	{
		Name:       "Marcus Oyelaran",
		SourceURL:  "https://example.org/figures/marcus-oyelaran",
		RawContent: "Marcus Oyelaran is a fictional governor known for rural broadband programs and a contested record on water rights.",
		Speeches: []string{
			"A farm without a connection is a farm selling at yesterday's prices. Broadband is irrigation for the information age.",
		},
		Statements: []string{
			"The aquifer compact protects every county, including the ones that voted against it.",
			"We will publish the water usage audits in full, unredacted.",
		},
	},
	{
		Name:       "Petra Lindqvist",
		SourceURL:  "https://example.org/figures/petra-lindqvist",
		RawContent: "Petra Lindqvist is a fictional mayor who rebuilt the city's flood defenses after the 2019 storms and later led the coastal resilience coalition.",
		News: []string{
			"Lindqvist opened the new sea wall promenade, three months ahead of schedule.",
			"The coastal coalition named Lindqvist as its chair for a second term.",
		},
	},
}

func main() {
	outDir := flag.String("out", "testdata/documents", "directory to write sample document JSON files")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		slog.Error("error creating output directory", "dir", *outDir, "err", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	for _, doc := range samples {
		doc.ID = core.SlugFromName(doc.Name)
		doc.Timestamp = now

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			slog.Error("error encoding document", "document", doc.ID, "err", err)
			os.Exit(1)
		}

		path := filepath.Join(*outDir, doc.ID+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			slog.Error("error writing document", "path", path, "err", err)
			os.Exit(1)
		}
		fmt.Println(path)
	}
}
