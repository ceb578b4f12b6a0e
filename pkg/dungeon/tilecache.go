package dungeon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// CompressTiles gzip-compresses the JSON encoding of a tile grid snapshot
// for the World.tileCache column. The cache is a derived optimisation, never
// primary state, so any encoding that round-trips is acceptable; gzip keeps
// the BLOB small without requiring a bespoke binary layout.
func CompressTiles(tiles []map[string]any) ([]byte, error) {
	raw, err := json.Marshal(tiles)
	if err != nil {
		return nil, fmt.Errorf("marshal tile cache: %w", err)
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("gzip tile cache: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close tile cache writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressTiles reverses CompressTiles.
func DecompressTiles(blob []byte) ([]map[string]any, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("open tile cache reader: %w", err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tile cache: %w", err)
	}
	var tiles []map[string]any
	if err := json.Unmarshal(raw, &tiles); err != nil {
		return nil, fmt.Errorf("unmarshal tile cache: %w", err)
	}
	return tiles, nil
}
