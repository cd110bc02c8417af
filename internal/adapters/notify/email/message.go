package email

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

type message struct {
	From    string
	To      mail.Address
	Subject string
	Body    string
	Date    time.Time
}

func (m message) bytes() ([]byte, error) {
	var htmlBody bytes.Buffer
	if err := markdown.Convert([]byte(m.Body), &htmlBody); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	var buf bytes.Buffer
	parts := multipart.NewWriter(&buf)

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", m.From)
	fmt.Fprintf(&out, "To: %s\r\n", m.To.String())
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&out, "Date: %s\r\n", m.Date.Format(time.RFC1123Z))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%s\r\n", parts.Boundary())
	out.WriteString("\r\n")

	if err := writePart(parts, "text/plain; charset=utf-8", []byte(m.Body)); err != nil {
		return nil, err
	}
	if err := writePart(parts, "text/html; charset=utf-8", htmlBody.Bytes()); err != nil {
		return nil, err
	}
	if err := parts.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	out.Write(buf.Bytes())
	return out.Bytes(), nil
}

func writePart(parts *multipart.Writer, contentType string, body []byte) error {
	part, err := parts.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}

	writer := quotedprintable.NewWriter(part)
	if _, err := writer.Write(body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("flush %s part: %w", contentType, err)
	}
	return nil
}
