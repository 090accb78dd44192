package source

import (
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/pkg/errors"
)

// CSV column names
const (
	ColumnSender     = "sender"
	ColumnBody       = "body"
	ColumnReceivedAt = "received_at"
)

// RequiredColumns must all appear in a CSV header
var RequiredColumns = []string{ColumnSender, ColumnBody, ColumnReceivedAt}

func (rd *reader) readCSV(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return errors.InputError(errors.CodeEmptyInput, rd.name, nil)
	}
	if err != nil {
		return errors.ParseError(errors.CodeInvalidFormat, rd.name, 1, "header", "", err)
	}

	if missing := errors.MissingColumns(RequiredColumns, header); len(missing) > 0 {
		return errors.ParseError(errors.CodeMissingColumn, rd.name, 1, strings.Join(missing, ", "), "", nil)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}

	line := 1
	for {
		if err := rd.cancelled(); err != nil {
			return err
		}

		record, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			if ferr := rd.fail(errors.ParseError(errors.CodeInvalidFormat, rd.name, line, "record", "", err)); ferr != nil {
				return ferr
			}
			continue
		}

		if blank(record) {
			continue
		}
		rd.stats.Records++

		msg, perr := rd.csvMessage(record, columns, line)
		if perr != nil {
			if ferr := rd.fail(perr); ferr != nil {
				return ferr
			}
			continue
		}
		rd.accept(msg)
	}
}

func (rd *reader) csvMessage(record []string, columns map[string]int, line int) (models.RawMessage, *errors.TrackerError) {
	field := func(name string) string {
		if i := columns[name]; i < len(record) {
			return record[i]
		}
		return ""
	}

	body := field(ColumnBody)
	if !utf8.ValidString(body) {
		return models.RawMessage{}, errors.ParseError(errors.CodeEncodingError, rd.name, line, ColumnBody, "", nil)
	}

	msg := models.RawMessage{Text: body, Sender: strings.TrimSpace(field(ColumnSender))}
	if raw := strings.TrimSpace(field(ColumnReceivedAt)); raw != "" {
		at, err := models.ParseTimeInLocation(raw, rd.cfg.Location)
		if err != nil {
			return models.RawMessage{}, errors.ParseError(errors.CodeInvalidData, rd.name, line, ColumnReceivedAt, raw, err)
		}
		msg.ReceivedAt = at
	}
	return msg, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
