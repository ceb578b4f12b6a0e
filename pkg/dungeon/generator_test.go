package dungeon

import "testing"

func TestGenerateDeterministic(t *testing.T) {
	a := Generate("w1", 42, 40, 25)
	b := Generate("w1", 42, 40, 25)
	if len(a.Tiles) != len(b.Tiles) {
		t.Fatalf("tile count differs: %d vs %d", len(a.Tiles), len(b.Tiles))
	}
	for i := range a.Tiles {
		if a.Tiles[i].Data["isWall"] != b.Tiles[i].Data["isWall"] {
			t.Fatalf("tile %d differs between identical-seed runs", i)
		}
	}
	if len(a.Regions) == 0 {
		t.Fatal("expected at least one carved region")
	}
}

func TestGenerateDifferentSeeds(t *testing.T) {
	a := Generate("w1", 1, 40, 25)
	b := Generate("w1", 2, 40, 25)
	differs := false
	for i := range a.Tiles {
		if a.Tiles[i].Data["isWall"] != b.Tiles[i].Data["isWall"] {
			differs = true
			break
		}
	}
	if !differs {
		t.Fatal("expected different seeds to produce different layouts")
	}
}

func TestTileCacheRoundTrip(t *testing.T) {
	tiles := []map[string]any{
		{"x": float64(0), "y": float64(0), "isWall": true},
		{"x": float64(1), "y": float64(0), "isWall": false},
	}
	blob, err := CompressTiles(tiles)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	got, err := DecompressTiles(blob)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if len(got) != len(tiles) {
		t.Fatalf("round-trip length mismatch: got %d want %d", len(got), len(tiles))
	}
	for i := range tiles {
		if got[i]["isWall"] != tiles[i]["isWall"] {
			t.Fatalf("tile %d mismatch after round-trip", i)
		}
	}
}
