package audit

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

// Export writes the given audit entries to a compact binary file, adapted
// from the teacher's replay-file codec (internal/infrastructure/storage):
// one fixed-size header, followed by one fixed-size record header and a
// variable-length JSON details blob per entry. This is a supplemental
// capability (spec.md does not require it) kept because the format itself —
// not the roguelike replay it originally served — generalises cleanly to
// "export an append-only log to a portable file".
const (
	magicHeader = `AUDT`
	formatVersion uint32 = 1
)

type fileHeader struct {
	Magic      [4]byte
	Version    uint32
	EntryCount uint32
}

type entryHeader struct {
	ID          int64
	Ts          int64 // unix nanoseconds
	ActionLen   uint16
	ActorLen    uint16
	TargetLen   uint16
	DetailsLen  uint32
}

func ExportFile(path string, entries []model.AuditEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeEntries(f, entries)
}

func writeEntries(w io.Writer, entries []model.AuditEntry) error {
	header := fileHeader{Version: formatVersion, EntryCount: uint32(len(entries))}
	copy(header.Magic[:], magicHeader)
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, e := range entries {
		action := []byte(e.Action)
		actor := []byte(e.ActorID)
		target := []byte(e.TargetID)
		var details []byte
		if e.Details != nil {
			b, err := json.Marshal(e.Details)
			if err != nil {
				return fmt.Errorf("marshal details for entry %d: %w", e.ID, err)
			}
			details = b
		}

		eh := entryHeader{
			ID:         e.ID,
			Ts:         e.Ts.UnixNano(),
			ActionLen:  uint16(len(action)),
			ActorLen:   uint16(len(actor)),
			TargetLen:  uint16(len(target)),
			DetailsLen: uint32(len(details)),
		}
		if err := binary.Write(w, binary.LittleEndian, &eh); err != nil {
			return fmt.Errorf("write entry header %d: %w", e.ID, err)
		}
		for _, chunk := range [][]byte{action, actor, target, details} {
			if len(chunk) == 0 {
				continue
			}
			if _, err := w.Write(chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

func ImportFile(path string) ([]model.AuditEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readEntries(f)
}

func readEntries(r io.Reader) ([]model.AuditEntry, error) {
	var header fileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(header.Magic[:]) != magicHeader {
		return nil, fmt.Errorf("invalid magic header")
	}
	if header.Version != formatVersion {
		return nil, fmt.Errorf("unsupported format version %d", header.Version)
	}

	entries := make([]model.AuditEntry, 0, header.EntryCount)
	for i := uint32(0); i < header.EntryCount; i++ {
		var eh entryHeader
		if err := binary.Read(r, binary.LittleEndian, &eh); err != nil {
			return nil, fmt.Errorf("read entry header %d: %w", i, err)
		}

		action, err := readString(r, int(eh.ActionLen))
		if err != nil {
			return nil, err
		}
		actor, err := readString(r, int(eh.ActorLen))
		if err != nil {
			return nil, err
		}
		target, err := readString(r, int(eh.TargetLen))
		if err != nil {
			return nil, err
		}

		e := model.AuditEntry{
			ID:       eh.ID,
			Action:   action,
			ActorID:  actor,
			TargetID: target,
			Ts:       time.Unix(0, eh.Ts).UTC(),
		}
		if eh.DetailsLen > 0 {
			buf := make([]byte, eh.DetailsLen)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			if err := json.Unmarshal(buf, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details for entry %d: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func readString(r io.Reader, n int) (string, error) {
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
