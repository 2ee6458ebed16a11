package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// maxParseErrors bounds the aggregated error message for badly broken files
const maxParseErrors = 10

// Parser turns CSV text into ordered row maps. Full parses are handed to a
// dedicated worker goroutine over a message-passing contract (text in, rows or
// a structured error out, no shared mutable state) so a large file never ties
// up the caller. An inline parser runs the identical code path on the calling
// goroutine and exists as the degraded-responsiveness fallback.
type Parser struct {
	requests    chan parseRequest
	startWorker sync.Once
	inline      bool
}

type parseRequest struct {
	text    string
	maxRows int // 0 means no limit
	reply   chan parseReply
}

type parseReply struct {
	preview *Preview
	err     error
}

// NewParser creates a parser backed by a background worker, started lazily on
// first use
func NewParser() *Parser {
	return &Parser{requests: make(chan parseRequest)}
}

// NewInlineParser creates a parser that runs on the calling goroutine.
// Output is identical to the worker-backed parser.
func NewInlineParser() *Parser {
	return &Parser{inline: true}
}

// ParseAll parses the entire file into ordered rows. A failed parse yields no
// rows; callers must not partially apply the result.
func (p *Parser) ParseAll(text string) ([]RawRow, error) {
	preview, err := p.parse(text, 0)
	if err != nil {
		return nil, err
	}
	return preview.Rows, nil
}

// ParsePreview parses headers plus at most maxRows data rows for the mapping UI
func (p *Parser) ParsePreview(text string, maxRows int) (*Preview, error) {
	if maxRows <= 0 {
		maxRows = DefaultConfig().PreviewRows
	}
	return p.parse(text, maxRows)
}

func (p *Parser) parse(text string, maxRows int) (*Preview, error) {
	if p.inline {
		return parseDelimited(text, maxRows)
	}

	p.startWorker.Do(func() {
		go p.worker()
	})

	reply := make(chan parseReply, 1)
	p.requests <- parseRequest{text: text, maxRows: maxRows, reply: reply}
	result := <-reply
	return result.preview, result.err
}

// worker serves parse requests sequentially for the lifetime of the process
func (p *Parser) worker() {
	for req := range p.requests {
		preview, err := parseDelimited(req.text, req.maxRows)
		req.reply <- parseReply{preview: preview, err: err}
	}
}

// parseDelimited is the single parsing implementation behind both execution
// paths: UTF-8, comma-delimited, double-quote escaping, trimmed header row,
// blank lines skipped. Malformed quoting and inconsistent column counts are
// collected and reported as one aggregated error.
func parseDelimited(text string, maxRows int) (*Preview, error) {
	reader := csv.NewReader(strings.NewReader(text))

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(h)
	}

	var rows []RawRow
	var parseErrs []string
	truncated := false

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if len(parseErrs) < maxParseErrors {
					parseErrs = append(parseErrs, fmt.Sprintf("line %d: %v", parseErr.Line, parseErr.Err))
					continue
				}
				truncated = true
				break
			}
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		row := make(RawRow, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)

		if maxRows > 0 && len(rows) >= maxRows {
			break
		}
	}

	if len(parseErrs) > 0 {
		detail := strings.Join(parseErrs, "; ")
		if truncated {
			detail += "; further errors omitted"
		}
		return nil, fmt.Errorf("csv parse failed with %d error(s): %s", len(parseErrs), detail)
	}

	return &Preview{Headers: headers, Rows: rows}, nil
}
