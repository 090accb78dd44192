package smsgen

import (
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Format is an export layout
type Format string

const (
	FormatXML Format = "xml"
	FormatCSV Format = "csv"
)

type smsesElement struct {
	XMLName xml.Name     `xml:"smses"`
	Count   int          `xml:"count,attr"`
	Backup  string       `xml:"backup_date,attr"`
	SMS     []smsElement `xml:"sms"`
}

type smsElement struct {
	Protocol     string `xml:"protocol,attr"`
	Address      string `xml:"address,attr"`
	Date         string `xml:"date,attr"`
	Type         string `xml:"type,attr"`
	Body         string `xml:"body,attr"`
	Read         string `xml:"read,attr"`
	ReadableDate string `xml:"readable_date,attr"`
}

// Write renders msgs in format
func Write(w io.Writer, format Format, msgs []Message) error {
	switch format {
	case FormatXML:
		return WriteXML(w, msgs)
	case FormatCSV:
		return WriteCSV(w, msgs)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteXML writes msgs as an SMS Backup & Restore document
func WriteXML(w io.Writer, msgs []Message) error {
	doc := smsesElement{Count: len(msgs), Backup: millis(time.Now())}
	for _, m := range msgs {
		doc.SMS = append(doc.SMS, smsElement{
			Protocol:     "0",
			Address:      m.Sender,
			Date:         millis(m.ReceivedAt),
			Type:         "1",
			Body:         m.Body,
			Read:         "1",
			ReadableDate: m.ReceivedAt.Format("02 Jan 2006 15:04:05"),
		})
	}

	if _, err := io.WriteString(w, "<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteCSV writes msgs with sender, body and received_at columns. Times are
// RFC 3339 so their zone survives.
func WriteCSV(w io.Writer, msgs []Message) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"sender", "body", "received_at"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, m := range msgs {
		if err := cw.Write([]string{m.Sender, m.Body, m.ReceivedAt.Format(time.RFC3339)}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
