package domain

import (
	"path/filepath"
	"strings"
)

// Envelope is an inbound chat message, normalized by the transport
type Envelope struct {
	Source      string // slack, feishu
	EventID     string
	Channel     string
	UserID      string
	MessageTS   string
	Text        string
	Files       []FileRef
	IsDirect    bool
	MentionsBot bool
}

// Context returns the gating context of the message
func (e *Envelope) Context() MessageContext {
	return MessageContext{IsDirect: e.IsDirect, MentionsBot: e.MentionsBot, Text: e.Text}
}

// FileRef points at an attachment that the transport can download
type FileRef struct {
	ID        string
	MessageID string
	Name      string
	MimeType  string
	URL       string
	Size      int64
}

// AttachmentKind is a supported document type. Higher values win when a
// message carries several attachments.
type AttachmentKind int

const (
	AttachmentNone AttachmentKind = iota
	AttachmentExcel
	AttachmentWord
	AttachmentPDF
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentPDF:
		return "pdf"
	case AttachmentWord:
		return "word"
	case AttachmentExcel:
		return "excel"
	}
	return "none"
}

// Kind classifies the attachment by mime type, falling back to the extension
func (f *FileRef) Kind() AttachmentKind {
	mime := strings.ToLower(f.MimeType)
	switch {
	case mime == "application/pdf":
		return AttachmentPDF
	case mime == "application/msword",
		strings.Contains(mime, "wordprocessingml"):
		return AttachmentWord
	case mime == "application/vnd.ms-excel",
		strings.Contains(mime, "spreadsheetml"):
		return AttachmentExcel
	}
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".pdf":
		return AttachmentPDF
	case ".doc", ".docx":
		return AttachmentWord
	case ".xls", ".xlsx":
		return AttachmentExcel
	}
	return AttachmentNone
}

// ActionEnvelope is a button click on a previously posted proposal
type ActionEnvelope struct {
	Source    string
	Channel   string
	UserID    string
	MessageTS string
	ActionID  string
	Value     string
}
