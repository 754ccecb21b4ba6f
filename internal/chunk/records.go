package chunk

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/nicolagi/chunkdiff/internal/intraline"
	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/pkg/errors"
)

// Identify the interchange format. Readers refuse other versions.
const (
	FormatName    = "chunkdiff"
	FormatVersion = 1
)

// RecordHeader is the first record of the interchange stream.
type RecordHeader struct {
	Format           string   `json:"format"`
	Version          int      `json:"version"`
	Kind             string   `json:"kind"`
	Fingerprint      string   `json:"fingerprint"`
	Parents          []string `json:"parents,omitempty"`
	OrigFinalNewline bool     `json:"origFinalNewline"`
	ModFinalNewline  bool     `json:"modFinalNewline"`
	Summary          Summary  `json:"summary"`
}

// Record is one chunk of the interchange stream. Line numbers are 1-based;
// span, hidden and indentation offsets are relative to the chunk.
type Record struct {
	Index          int            `json:"index"`
	Tag            string         `json:"tag"`
	OrigFirst      int            `json:"origFirst"`
	OrigCount      int            `json:"origCount"`
	ModFirst       int            `json:"modFirst"`
	ModCount       int            `json:"modCount"`
	Collapsible    bool           `json:"collapsible,omitempty"`
	Hidden         *Hidden        `json:"hidden,omitempty"`
	Declaration    *Declaration   `json:"declaration,omitempty"`
	WhitespaceOnly bool           `json:"whitespaceOnly,omitempty"`
	Orig           []RecordLine   `json:"orig,omitempty"`
	Mod            []RecordLine   `json:"mod,omitempty"`
	OrigSpans      []RecordSpan   `json:"origSpans,omitempty"`
	ModSpans       []RecordSpan   `json:"modSpans,omitempty"`
	Moves          []RecordMove   `json:"moves,omitempty"`
	Indentation    []RecordIndent `json:"indentation,omitempty"`
}

// Hidden is the run of rows of a collapsible chunk left out of the record.
type Hidden struct {
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

type Declaration struct {
	Orig *RecordLine `json:"orig,omitempty"`
	Mod  *RecordLine `json:"mod,omitempty"`
}

type RecordLine struct {
	N          int    `json:"n"`
	Text       string `json:"text"`
	Provenance string `json:"provenance,omitempty"`
}

type RecordSpan struct {
	Line  int  `json:"line"`
	Start int  `json:"start"`
	End   int  `json:"end"`
	Whole bool `json:"whole,omitempty"`
}

type RecordMove struct {
	Direction   string `json:"direction"`
	First       int    `json:"first"`
	Last        int    `json:"last"`
	TargetChunk int    `json:"targetChunk"`
	TargetFirst int    `json:"targetFirst"`
	TargetLast  int    `json:"targetLast"`
}

type RecordIndent struct {
	OrigLine   int    `json:"origLine"`
	ModLine    int    `json:"modLine"`
	OrigIndent string `json:"origIndent"`
	ModIndent  string `json:"modIndent"`
}

// WriteRecords writes h followed by one record per chunk, one JSON value per
// line. Collapsible chunks only carry contextLines rows at each end.
func WriteRecords(w io.Writer, h RecordHeader, chunks []Chunk, contextLines int) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	h.Format = FormatName
	h.Version = FormatVersion
	if err := enc.Encode(h); err != nil {
		return errors.Wrap(err, "chunk.WriteRecords: header")
	}
	for _, c := range chunks {
		if err := enc.Encode(NewRecord(c, contextLines)); err != nil {
			return errors.Wrapf(err, "chunk.WriteRecords: chunk %d", c.Index)
		}
	}
	return errors.WithStack(bw.Flush())
}

// NewRecord converts c to its interchange form.
func NewRecord(c Chunk, contextLines int) Record {
	r := Record{
		Index:          c.Index,
		Tag:            c.Tag.String(),
		OrigFirst:      c.OrigFirst(),
		OrigCount:      c.OrigLen(),
		ModFirst:       c.ModFirst(),
		ModCount:       c.ModLen(),
		Collapsible:    c.Collapsible,
		WhitespaceOnly: c.WhitespaceOnly,
		OrigSpans:      recordSpans(c.OrigSpans),
		ModSpans:       recordSpans(c.ModSpans),
	}
	if rows := c.Rows(); c.Collapsible && contextLines >= 0 && rows > 2*contextLines {
		headO, headM, _ := c.Expand(0, contextLines)
		tailO, tailM, _ := c.Expand(rows-contextLines, rows)
		r.Orig = append(recordLines(headO), recordLines(tailO)...)
		r.Mod = append(recordLines(headM), recordLines(tailM)...)
		r.Hidden = &Hidden{Offset: contextLines, Count: rows - 2*contextLines}
		if c.Header.Orig != nil || c.Header.Mod != nil {
			r.Declaration = &Declaration{Orig: recordLine(c.Header.Orig), Mod: recordLine(c.Header.Mod)}
		}
	} else {
		r.Orig = recordLines(c.OrigLines())
		r.Mod = recordLines(c.ModLines())
	}
	for _, m := range c.Moves {
		r.Moves = append(r.Moves, RecordMove{
			Direction:   m.Direction.String(),
			First:       m.First,
			Last:        m.Last,
			TargetChunk: m.TargetChunk,
			TargetFirst: m.TargetFirst,
			TargetLast:  m.TargetLast,
		})
	}
	for _, in := range c.Indentation {
		r.Indentation = append(r.Indentation, RecordIndent(in))
	}
	return r
}

func recordLine(l *Line) *RecordLine {
	if l == nil {
		return nil
	}
	rl := RecordLine{N: l.Number, Text: l.Text}
	if l.Provenance != opcode.Unchanged {
		rl.Provenance = l.Provenance.String()
	}
	return &rl
}

func recordLines(lines []Line) []RecordLine {
	var out []RecordLine
	for i := range lines {
		out = append(out, *recordLine(&lines[i]))
	}
	return out
}

func recordSpans(spans []intraline.Span) []RecordSpan {
	var out []RecordSpan
	for _, s := range spans {
		out = append(out, RecordSpan{Line: s.Line, Start: s.Start, End: s.End, Whole: s.Whole})
	}
	return out
}

// ReadRecords parses a stream written by WriteRecords.
func ReadRecords(r io.Reader) (RecordHeader, []Record, error) {
	const method = "ReadRecords"
	dec := json.NewDecoder(bufio.NewReader(r))
	var h RecordHeader
	if err := dec.Decode(&h); err != nil {
		return h, nil, errorf(method, "header: %v", err)
	}
	if h.Format != FormatName || h.Version != FormatVersion {
		return h, nil, errorf(method, "unsupported format %q version %d", h.Format, h.Version)
	}
	var records []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return h, nil, errorf(method, "record %d: %v", len(records), err)
		}
		records = append(records, rec)
	}
	return h, records, nil
}
