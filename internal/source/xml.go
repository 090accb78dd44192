package source

import (
	"encoding/xml"
	"io"
	"unicode/utf8"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/pkg/errors"
)

// smsTypeInbox is the backup's type attribute for received messages
const smsTypeInbox = "1"

type smsElement struct {
	Address string `xml:"address,attr"`
	Body    string `xml:"body,attr"`
	Date    string `xml:"date,attr"`
	Type    string `xml:"type,attr"`
}

// readXML streams <sms> elements so large backups are never held whole
func (rd *reader) readXML(r io.Reader) error {
	dec := xml.NewDecoder(r)
	sawRoot := false

	for {
		if err := rd.cancelled(); err != nil {
			return err
		}

		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.ParseError(errors.CodeInvalidFormat, rd.name, rd.stats.Records, "xml", "", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local == "smses" {
			sawRoot = true
			continue
		}
		if start.Name.Local != "sms" {
			if err := dec.Skip(); err != nil {
				return errors.ParseError(errors.CodeInvalidFormat, rd.name, rd.stats.Records, start.Name.Local, "", err)
			}
			continue
		}

		rd.stats.Records++

		var el smsElement
		if err := dec.DecodeElement(&el, &start); err != nil {
			if ferr := rd.fail(errors.ParseError(errors.CodeInvalidFormat, rd.name, rd.stats.Records, "sms", "", err)); ferr != nil {
				return ferr
			}
			continue
		}

		if !rd.cfg.IncludeSent && el.Type != "" && el.Type != smsTypeInbox {
			rd.stats.Skipped++
			continue
		}

		msg, perr := rd.xmlMessage(el)
		if perr != nil {
			if ferr := rd.fail(perr); ferr != nil {
				return ferr
			}
			continue
		}
		rd.accept(msg)
	}

	if !sawRoot && rd.stats.Records == 0 {
		return errors.InputError(errors.CodeUnsupportedFormat, rd.name, nil).
			WithSuggestion("expected an SMS Backup & Restore file with an <smses> root")
	}

	return nil
}

func (rd *reader) xmlMessage(el smsElement) (models.RawMessage, *errors.TrackerError) {
	if !utf8.ValidString(el.Body) {
		return models.RawMessage{}, errors.ParseError(errors.CodeEncodingError, rd.name, rd.stats.Records, "body", "", nil)
	}

	msg := models.RawMessage{Text: el.Body, Sender: el.Address}
	if el.Date != "" {
		at, err := models.ParseTimeInLocation(el.Date, rd.cfg.Location)
		if err != nil {
			return models.RawMessage{}, errors.ParseError(errors.CodeInvalidData, rd.name, rd.stats.Records, "date", el.Date, err)
		}
		msg.ReceivedAt = at
	}
	return msg, nil
}
