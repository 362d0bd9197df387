package ingest

import (
	"strings"
	"testing"
)

func TestReadSources(t *testing.T) {
	csvText := strings.Join([]string{
		"name,addr:street,addr:postcode,cuisine,latitude,longitude,@id,google_place_id,unknown_col",
		"Violet's,Wardour St,W1D 4AD,georgian,51.513,-0.135,node/1,p-violets,x",
		"No Coords,,,,,,node/2,,x",
		"Bad Lat,,,,abc,-0.1,node/3,,x",
		",,,,,51.5,-0.1,node/4,x",
		"Quo Vadis,Dean Street,,,51.5136,-0.1321,node/5,,x",
	}, "\n")

	got, skipped, err := ReadSources(strings.NewReader(csvText))
	if err != nil {
		t.Fatalf("ReadSources: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parsed %d sources, want 2", len(got))
	}
	if skipped != 3 {
		t.Errorf("skipped = %d, want 3", skipped)
	}

	v := got[0]
	if v.Name != "Violet's" || v.Street != "Wardour St" || v.Postcode != "W1D 4AD" {
		t.Errorf("first source = %+v", v)
	}
	if v.Latitude != 51.513 || v.Longitude != -0.135 {
		t.Errorf("coordinates = %v,%v", v.Latitude, v.Longitude)
	}
	if v.ExternalID != "node/1" || v.PlaceID != "p-violets" {
		t.Errorf("identifiers = %q,%q", v.ExternalID, v.PlaceID)
	}
}

func TestReadListings(t *testing.T) {
	csvText := strings.Join([]string{
		"title,street,totalScore,reviewsCount,phone,website,categoryName,url,imageUrl,latitude,longitude",
		"Violet's Soho,Wardour Street,4.5,\"1,203\",+44 20 7000 0000,https://violets.example,Georgian restaurant,https://maps/?query_place_id=p-violets,https://img/c.jpg,51.5131,-0.1352",
		"No Coordinates Cafe,,,,,,,,,,",
		",street only,,,,,,,,,",
	}, "\n")

	got, skipped, err := ReadListings(strings.NewReader(csvText))
	if err != nil {
		t.Fatalf("ReadListings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parsed %d listings, want 2", len(got))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1 (untitled row)", skipped)
	}

	v := got[0]
	if v.Rating == nil || *v.Rating != 4.5 {
		t.Errorf("rating = %v", v.Rating)
	}
	if v.ReviewsCount != "1,203" {
		t.Errorf("reviews count = %q", v.ReviewsCount)
	}
	if v.Latitude == nil || *v.Latitude != 51.5131 {
		t.Errorf("latitude = %v", v.Latitude)
	}
	if got[1].Latitude != nil {
		t.Errorf("absent coordinates should stay nil, got %v", *got[1].Latitude)
	}
	if v.ListingID() != "p-violets" {
		t.Errorf("listing id = %q", v.ListingID())
	}
}

func TestResolveHeaderTyposAndUnknowns(t *testing.T) {
	// "latitade" is one edit from "latitude"; "wat" matches nothing.
	header := []string{"Name", "latitade", "Longitude", "wat"}
	cols := resolveHeader(header, sourceAliases)

	if cols["name"] != 0 {
		t.Errorf("name column = %d, want 0", cols["name"])
	}
	if cols["latitude"] != 1 {
		t.Errorf("typo'd latitude column = %d, want 1", cols["latitude"])
	}
	if cols["longitude"] != 2 {
		t.Errorf("longitude column = %d, want 2", cols["longitude"])
	}
	if _, ok := cols["street"]; ok {
		t.Error("unknown column mapped to street")
	}
}
