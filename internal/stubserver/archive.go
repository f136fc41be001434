// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stubserver

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/pdiddy/ojamed/pkg/types"
)

// Archive entry names.
const (
	EntryDeckCSV  = "deck.csv"
	EntryDeckApkg = "deck.apkg"
	EntryConfig   = "config.json"
	EntryNotesPDF = "notes.pdf"
	EntryAudio    = "audio.json"
	EntryRegions  = "regions.json"
)

// apkgPlaceholder stands in for a real Anki package.
var apkgPlaceholder = []byte("ojamed stub deck: not a real Anki package\n")

// buildDeckArchive returns a zip with one placeholder card per requested
// card type and level. Comprehensive packages also carry a notes PDF.
func buildDeckArchive(lecture upload, audio *upload, cfg types.ProcessingConfiguration, comprehensive bool) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	cards, err := cardsCSV(lecture.name, cfg)
	if err != nil {
		return nil, err
	}
	if err := writeEntry(zw, EntryDeckCSV, cards); err != nil {
		return nil, err
	}
	if err := writeEntry(zw, EntryDeckApkg, apkgPlaceholder); err != nil {
		return nil, err
	}

	cfgJSON, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := writeEntry(zw, EntryConfig, cfgJSON); err != nil {
		return nil, err
	}

	if audio != nil {
		meta, err := json.MarshalIndent(map[string]any{
			"file_name":  audio.name,
			"size_bytes": audio.size,
			"clips":      []any{},
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding audio summary: %w", err)
		}
		if err := writeEntry(zw, EntryAudio, meta); err != nil {
			return nil, err
		}
	}

	if comprehensive {
		notes, err := notesPDF(lecture.name, cfg)
		if err != nil {
			return nil, err
		}
		if err := writeEntry(zw, EntryNotesPDF, notes); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return buf.Bytes(), nil
}

// buildOcclusionArchive returns a zip echoing the regions it was given.
func buildOcclusionArchive(image upload, regions json.RawMessage, deckName string) ([]byte, error) {
	if deckName == "" {
		deckName = "Image Occlusion Deck"
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := writeEntry(zw, EntryRegions, regions); err != nil {
		return nil, err
	}
	deck := fmt.Sprintf("deck: %s\nimage: %s\n", deckName, image.name)
	if err := writeEntry(zw, EntryDeckApkg, append([]byte(deck), apkgPlaceholder...)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return buf.Bytes(), nil
}

func cardsCSV(source string, cfg types.ProcessingConfiguration) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"front", "back", "type", "level"}); err != nil {
		return nil, err
	}
	for _, ct := range cfg.CardTypes {
		for _, l := range cfg.CardLevels {
			front := fmt.Sprintf("Sample %s question from %s", ct, source)
			back := fmt.Sprintf("Sample %s answer", l)
			if ct == types.CardCloze {
				front = fmt.Sprintf("{{c1::%s}} is covered in %s", l, source)
				back = ""
			}
			if err := w.Write([]string{front, back, string(ct), string(l)}); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writing cards: %w", err)
	}
	return buf.Bytes(), nil
}

func notesPDF(source string, cfg types.ProcessingConfiguration) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Notes for %s", source), false)
	pdf.SetAuthor("ojamed stub", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Lecture notes")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 6, fmt.Sprintf("Source: %s", source))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format("2006-01-02 15:04 MST")))
	pdf.Ln(10)

	names := make([]string, 0, len(cfg.CardTypes))
	for _, ct := range cfg.CardTypes {
		names = append(names, string(ct))
	}
	pdf.MultiCell(0, 6, "Card types: "+strings.Join(names, ", "), "", "L", false)
	pdf.MultiCell(0, 6, "These notes are placeholders produced by the local stand-in service.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing notes pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
